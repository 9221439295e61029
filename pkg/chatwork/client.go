package chatwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	externaldomain "approvalhub-backend/internal/external/domain"
)

const defaultBaseURL = "https://api.chatwork.com/v2"

// Client is a thin HTTP client for the Chatwork REST API v2.
// Authentication uses the X-ChatWorkToken header.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Chatwork client for one API token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL overrides the API base URL (used by tests and mock servers).
func (c *Client) SetBaseURL(baseURL string) {
	if baseURL != "" {
		c.baseURL = baseURL
	}
}

// Me is the authenticated account, returned by GET /me.
type Me struct {
	AccountID int    `json:"account_id"`
	Name      string `json:"name"`
	Mail      string `json:"mail"`
}

// Room is one Chatwork room from GET /rooms.
type Room struct {
	RoomID int    `json:"room_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// Account is the sender block embedded in a message.
type Account struct {
	AccountID      int    `json:"account_id"`
	Name           string `json:"name"`
	AvatarImageURL string `json:"avatar_image_url"`
}

// Message is one Chatwork message. SendTime is Unix seconds.
type Message struct {
	MessageID  string  `json:"message_id"`
	Account    Account `json:"account"`
	Body       string  `json:"body"`
	SendTime   int64   `json:"send_time"`
	UpdateTime int64   `json:"update_time"`
}

// GetMe returns the authenticated account, validating the token.
func (c *Client) GetMe(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.get(ctx, "/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetRooms lists all rooms visible to the token.
func (c *Client) GetRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.get(ctx, "/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetMessages returns the latest messages of one room. With force set,
// up to 100 messages are returned regardless of read state.
func (c *Client) GetMessages(ctx context.Context, roomID int, force bool) ([]Message, error) {
	query := url.Values{}
	if force {
		query.Set("force", "1")
	}

	var messages []Message
	path := fmt.Sprintf("/rooms/%d/messages", roomID)
	if err := c.get(ctx, path, query, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-ChatWorkToken", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &externaldomain.RemoteAPIError{Service: "chatwork", StatusCode: resp.StatusCode}
	}

	// Chatwork answers 204 with an empty body when a room has no unread
	// messages; leave the result at its zero value in that case.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("unmarshaling response from GET %s: %w", path, err)
	}
	return nil
}

// ParseSendTime converts a message send_time into a time.Time.
func ParseSendTime(sendTime int64) time.Time {
	return time.Unix(sendTime, 0).UTC()
}

// RoomIDString returns the room ID in the string form used by the
// normalized message model.
func RoomIDString(roomID int) string {
	return strconv.Itoa(roomID)
}
