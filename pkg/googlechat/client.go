package googlechat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	externaldomain "approvalhub-backend/internal/external/domain"
)

const defaultBaseURL = "https://chat.googleapis.com/v1"

// Client is a thin HTTP client for the Google Chat REST API v1,
// authenticated with an OAuth bearer token.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Google Chat client for one access token.
func NewClient(accessToken string) *Client {
	return &Client{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
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

// Space is one chat space from GET /spaces. Name is the resource name,
// e.g. "spaces/AAAA".
type Space struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
}

// Sender is the user block embedded in a message.
type Sender struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Message is one Google Chat message. Name is the resource name
// ("spaces/AAAA/messages/BBBB"); CreateTime is RFC 3339.
type Message struct {
	Name         string  `json:"name"`
	Sender       *Sender `json:"sender"`
	Text         string  `json:"text"`
	ArgumentText string  `json:"argumentText"`
	CreateTime   string  `json:"createTime"`
}

type spacesResponse struct {
	Spaces []Space `json:"spaces"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// ListSpaces returns the spaces visible to the token.
func (c *Client) ListSpaces(ctx context.Context) ([]Space, error) {
	var resp spacesResponse
	if err := c.get(ctx, "/spaces", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Spaces, nil
}

// ListMessages returns up to pageSize messages of one space. spaceName is
// the resource name from ListSpaces.
func (c *Client) ListMessages(ctx context.Context, spaceName string, pageSize int) ([]Message, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	query := url.Values{}
	query.Set("pageSize", fmt.Sprintf("%d", pageSize))

	var resp messagesResponse
	if err := c.get(ctx, "/"+spaceName+"/messages", query, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
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
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &externaldomain.RemoteAPIError{Service: "google_chat", StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("unmarshaling response from GET %s: %w", path, err)
	}
	return nil
}
