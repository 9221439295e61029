package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	externaldomain "approvalhub-backend/internal/external/domain"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Service wraps the Gmail REST API. Unlike a per-user OAuth flow, each
// call takes the access token of the connection being synced; the token
// is stored opaque on the connection.
type Service struct {
	endpoint string
}

// NewService creates a Gmail service wrapper.
func NewService() *Service {
	return &Service{}
}

// SetEndpoint overrides the API endpoint (used by tests and mock servers).
func (s *Service) SetEndpoint(endpoint string) {
	if endpoint != "" {
		s.endpoint = endpoint
	}
}

func (s *Service) client(ctx context.Context, accessToken string) (*gmail.Service, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})

	opts := []option.ClientOption{option.WithTokenSource(tokenSource)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListMessages returns lightweight message stubs (IDs only) matching the
// label filters. Full payloads require a GetMessage call per ID.
func (s *Service) ListMessages(ctx context.Context, accessToken string, maxResults int64, labelIDs ...string) ([]*gmail.Message, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Messages.List("me").MaxResults(maxResults)
	if len(labelIDs) > 0 {
		call = call.LabelIds(labelIDs...)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return resp.Messages, nil
}

// GetMessage retrieves the full payload of one message.
func (s *Service) GetMessage(ctx context.Context, accessToken, messageID string) (*gmail.Message, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return msg, nil
}

// ListLabels enumerates the account's labels.
func (s *Service) ListLabels(ctx context.Context, accessToken string) ([]*gmail.Label, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Labels.List("me").Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return resp.Labels, nil
}

// GetProfile fetches the account profile, validating the token.
func (s *Service) GetProfile(ctx context.Context, accessToken string) (*gmail.Profile, error) {
	srv, err := s.client(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	profile, err := srv.Users.GetProfile("me").Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return profile, nil
}

// wrapError converts Gmail API status errors into the shared remote-API
// error type, keeping the HTTP status code.
func wrapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &externaldomain.RemoteAPIError{Service: "gmail", StatusCode: apiErr.Code}
	}
	return err
}

// GetHeader returns a header value by case-insensitive name match.
func GetHeader(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, header := range msg.Payload.Headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// GetBody extracts the message body. The payload's own body wins when
// present; otherwise the first text/plain part is used, then the first
// text/html part, then empty.
func GetBody(msg *gmail.Message) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}

	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBase64URL(msg.Payload.Body.Data)
	}

	if body := findPartBody(msg.Payload.Parts, "text/plain"); body != "" {
		return body
	}
	return findPartBody(msg.Payload.Parts, "text/html")
}

func findPartBody(parts []*gmail.MessagePart, mimeType string) string {
	for _, part := range parts {
		if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
			return decodeBase64URL(part.Body.Data)
		}
		if len(part.Parts) > 0 {
			if body := findPartBody(part.Parts, mimeType); body != "" {
				return body
			}
		}
	}
	return ""
}

func decodeBase64URL(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// ParseFrom splits a From header into display name and address.
// "Alice <alice@example.com>" yields ("Alice", "alice@example.com");
// a bare address is returned as both.
func ParseFrom(from string) (name, email string) {
	if idx := strings.Index(from, "<"); idx >= 0 {
		name = strings.TrimSpace(from[:idx])
		email = strings.TrimSuffix(strings.TrimSpace(from[idx+1:]), ">")
		if name == "" {
			name = email
		}
		return name, email
	}
	return strings.TrimSpace(from), strings.TrimSpace(from)
}

// ReceivedAt converts the message's internalDate (Unix milliseconds)
// into a time.Time.
func ReceivedAt(msg *gmail.Message) time.Time {
	return time.UnixMilli(msg.InternalDate).UTC()
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}
