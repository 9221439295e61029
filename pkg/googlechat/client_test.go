package googlechat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	externaldomain "approvalhub-backend/internal/external/domain"
)

func TestListSpaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/spaces" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spaces":[{"name":"spaces/AAA","displayName":"Engineering","type":"ROOM"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-token")
	client.SetBaseURL(server.URL)

	spaces, err := client.ListSpaces(context.Background())
	if err != nil {
		t.Fatalf("ListSpaces failed: %v", err)
	}
	if len(spaces) != 1 || spaces[0].Name != "spaces/AAA" {
		t.Fatalf("unexpected spaces: %+v", spaces)
	}
}

func TestListMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/spaces/AAA/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("pageSize"); got != "50" {
			t.Errorf("expected default pageSize 50, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"name":"spaces/AAA/messages/BBB","sender":{"displayName":"Sato","email":"sato@example.com"},"text":"approval needed","createTime":"2026-08-01T10:00:00Z"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-token")
	client.SetBaseURL(server.URL)

	messages, err := client.ListMessages(context.Background(), "spaces/AAA", 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Sender.Email != "sato@example.com" {
		t.Errorf("unexpected sender: %+v", messages[0].Sender)
	}
}

func TestListSpacesForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("bad-token")
	client.SetBaseURL(server.URL)

	_, err := client.ListSpaces(context.Background())
	var apiErr *externaldomain.RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected RemoteAPIError, got %T: %v", err, err)
	}
	if apiErr.Service != "google_chat" || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("unexpected error fields: %+v", apiErr)
	}
}

func TestMessageID(t *testing.T) {
	msg := Message{Name: "spaces/AAA/messages/BBB"}
	if got := MessageID(msg); got != "BBB" {
		t.Errorf("expected BBB, got %q", got)
	}
	if got := MessageID(Message{}); got != "" {
		t.Errorf("expected empty ID for empty name, got %q", got)
	}
}

func TestMessageText(t *testing.T) {
	if got := MessageText(Message{Text: "hello"}); got != "hello" {
		t.Errorf("expected text field, got %q", got)
	}
	if got := MessageText(Message{ArgumentText: "fallback"}); got != "fallback" {
		t.Errorf("expected argumentText fallback, got %q", got)
	}
}

func TestSenderName(t *testing.T) {
	if got := SenderName(Message{Sender: &Sender{DisplayName: "Sato"}}); got != "Sato" {
		t.Errorf("expected Sato, got %q", got)
	}
	if got := SenderName(Message{}); got != "Unknown" {
		t.Errorf("expected Unknown for missing sender, got %q", got)
	}
}

func TestParseCreateTime(t *testing.T) {
	got := ParseCreateTime(Message{CreateTime: "2026-08-01T10:00:00Z"})
	if got.IsZero() {
		t.Fatal("expected parsed time")
	}
	if got.Hour() != 10 {
		t.Errorf("unexpected hour: %d", got.Hour())
	}

	if !ParseCreateTime(Message{CreateTime: "garbage"}).IsZero() {
		t.Error("expected zero time for unparsable createTime")
	}
}

func TestFilterMessagesBySender(t *testing.T) {
	messages := []Message{
		{Name: "spaces/A/messages/1", Sender: &Sender{Email: "sato@example.com"}},
		{Name: "spaces/A/messages/2", Sender: &Sender{Email: "other@example.com"}},
		{Name: "spaces/A/messages/3"},
	}

	matched := FilterMessagesBySender(messages, []string{"sato@example.com"})
	if len(matched) != 1 || matched[0].Name != "spaces/A/messages/1" {
		t.Fatalf("unexpected match: %+v", matched)
	}
}
