package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"approvalhub-backend/internal/external/domain"
	"approvalhub-backend/internal/external/repository"
	taskdomain "approvalhub-backend/internal/task/domain"
	"approvalhub-backend/pkg/config"
)

type sinkRecorder struct {
	tasks []*taskdomain.Task
}

func (s *sinkRecorder) CreateFromExternal(task *taskdomain.Task) error {
	s.tasks = append(s.tasks, task)
	return nil
}

// chatworkTestServer serves two rooms with one message each.
func chatworkTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"room_id":1,"name":"Approvals","type":"group"},{"room_id":2,"name":"General","type":"group"}]`))
	})
	mux.HandleFunc("/rooms/1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"message_id":"m1","account":{"account_id":10,"name":"Tanaka"},"body":"urgent: approve the budget","send_time":1700000000}]`))
	})
	mux.HandleFunc("/rooms/2/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"message_id":"m2","account":{"account_id":11,"name":"Suzuki"},"body":"lunch today?","send_time":1700000100}]`))
	})
	return httptest.NewServer(mux)
}

func newTestSyncService(baseURL string) ExternalSyncUsecase {
	cfg := &config.Config{ChatworkBaseURL: baseURL, GoogleChatBaseURL: baseURL}
	return NewExternalSyncService(repository.NewMemoryStore(), cfg)
}

func addChatworkConnection(t *testing.T, svc ExternalSyncUsecase) *domain.Connection {
	t.Helper()
	conn, err := svc.AddConnection(ConnectionInput{
		ServiceType: "chatwork",
		ServiceName: "Work chat",
		APIToken:    "token",
	})
	if err != nil {
		t.Fatalf("AddConnection failed: %v", err)
	}
	return conn
}

func TestAddConnectionDefaults(t *testing.T) {
	svc := newTestSyncService("")
	conn := addChatworkConnection(t, svc)

	if conn.ID == "" {
		t.Error("expected generated connection ID")
	}
	if !conn.IsActive {
		t.Error("connections default to active")
	}
	if conn.SyncIntervalMinutes != 15 {
		t.Errorf("expected default interval 15, got %d", conn.SyncIntervalMinutes)
	}
	if conn.LastSyncAt != nil {
		t.Error("new connection must not have a last sync time")
	}

	connections, err := svc.GetConnections()
	if err != nil {
		t.Fatalf("GetConnections failed: %v", err)
	}
	if len(connections) != 1 || connections[0].ID != conn.ID {
		t.Fatalf("unexpected connections: %+v", connections)
	}
}

func TestUpdateConnection(t *testing.T) {
	svc := newTestSyncService("")
	conn := addChatworkConnection(t, svc)

	inactive := false
	name := "Renamed"
	updated, err := svc.UpdateConnection(conn.ID, ConnectionUpdate{
		ServiceName: &name,
		IsActive:    &inactive,
	})
	if err != nil {
		t.Fatalf("UpdateConnection failed: %v", err)
	}
	if updated.ServiceName != "Renamed" || updated.IsActive {
		t.Errorf("unexpected update result: %+v", updated)
	}

	// Untouched fields keep their values.
	if updated.APIToken != "token" {
		t.Errorf("API token must be preserved, got %q", updated.APIToken)
	}

	if _, err := svc.UpdateConnection("missing", ConnectionUpdate{}); !domain.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteConnectionKeepsRulesAndMessages(t *testing.T) {
	server := chatworkTestServer(t)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	conn := addChatworkConnection(t, svc)

	if _, err := svc.AddSyncRule(SyncRuleInput{ConnectionID: conn.ID, FilterType: "all"}); err != nil {
		t.Fatalf("AddSyncRule failed: %v", err)
	}
	if _, err := svc.SyncMessages(context.Background(), conn.ID); err != nil {
		t.Fatalf("SyncMessages failed: %v", err)
	}

	if err := svc.DeleteConnection(conn.ID); err != nil {
		t.Fatalf("DeleteConnection failed: %v", err)
	}

	rules, _ := svc.GetSyncRules()
	if len(rules) != 1 {
		t.Errorf("rules must survive connection deletion, got %d", len(rules))
	}
	messages, _ := svc.GetExternalMessages()
	if len(messages) == 0 {
		t.Error("messages must survive connection deletion")
	}

	if err := svc.DeleteConnection(conn.ID); !domain.IsNotFound(err) {
		t.Errorf("expected NotFoundError on second delete, got %v", err)
	}
}

func TestSyncRuleCRUD(t *testing.T) {
	svc := newTestSyncService("")
	conn := addChatworkConnection(t, svc)

	rule, err := svc.AddSyncRule(SyncRuleInput{
		ConnectionID:    conn.ID,
		RuleName:        "urgent things",
		FilterType:      "keyword",
		FilterValue:     "urgent",
		DefaultPriority: "bogus",
	})
	if err != nil {
		t.Fatalf("AddSyncRule failed: %v", err)
	}
	if !rule.IsActive {
		t.Error("rules default to active")
	}
	if rule.DefaultPriority != "medium" {
		t.Errorf("invalid priority should fall back to medium, got %s", rule.DefaultPriority)
	}

	value := "urgent,asap"
	updated, err := svc.UpdateSyncRule(rule.ID, SyncRuleUpdate{FilterValue: &value})
	if err != nil {
		t.Fatalf("UpdateSyncRule failed: %v", err)
	}
	if updated.FilterValue != "urgent,asap" {
		t.Errorf("unexpected filter value: %q", updated.FilterValue)
	}

	if err := svc.DeleteSyncRule(rule.ID); err != nil {
		t.Fatalf("DeleteSyncRule failed: %v", err)
	}
	if err := svc.DeleteSyncRule(rule.ID); !domain.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestSyncMessagesChatwork(t *testing.T) {
	server := chatworkTestServer(t)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	conn := addChatworkConnection(t, svc)

	messages, err := svc.SyncMessages(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("SyncMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}

	first := messages[0]
	if first.ID != "msg_chatwork_m1" {
		t.Errorf("unexpected message ID: %s", first.ID)
	}
	if first.ConnectionID != conn.ID || first.MessageType != domain.ServiceChatwork {
		t.Errorf("unexpected message fields: %+v", first)
	}
	if first.RoomID != "1" || first.RoomName != "Approvals" {
		t.Errorf("unexpected room fields: %+v", first)
	}
	if first.IsConvertedToTask {
		t.Error("synced messages start unconverted")
	}

	connections, _ := svc.GetConnections()
	if connections[0].LastSyncAt == nil {
		t.Error("sync must stamp last_sync_at")
	}

	// Second sync fetches the same remote messages; none are new.
	again, err := svc.SyncMessages(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("second SyncMessages failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected 0 new messages on resync, got %d", len(again))
	}

	stored, _ := svc.GetExternalMessages()
	if len(stored) != 2 {
		t.Errorf("store must not grow on resync, got %d messages", len(stored))
	}
}

func TestSyncMessagesRoomFailureSkipped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"room_id":1,"name":"Broken","type":"group"},{"room_id":2,"name":"Healthy","type":"group"}]`))
	})
	mux.HandleFunc("/rooms/1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/rooms/2/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"message_id":"ok1","account":{"name":"Suzuki"},"body":"hello","send_time":1700000000}]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	conn := addChatworkConnection(t, svc)

	messages, err := svc.SyncMessages(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("one broken room must not fail the sync: %v", err)
	}
	if len(messages) != 1 || messages[0].ExternalMessageID != "ok1" {
		t.Fatalf("expected only the healthy room's message, got %+v", messages)
	}
}

func TestSyncMessagesRoomCap(t *testing.T) {
	var fetched []string
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"room_id":1},{"room_id":2},{"room_id":3},{"room_id":4},{"room_id":5},{"room_id":6}]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fetched = append(fetched, r.URL.Path)
		w.Write([]byte(`[]`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	conn := addChatworkConnection(t, svc)

	if _, err := svc.SyncMessages(context.Background(), conn.ID); err != nil {
		t.Fatalf("SyncMessages failed: %v", err)
	}
	if len(fetched) != maxSyncContainers {
		t.Errorf("expected %d room fetches, got %d (%v)", maxSyncContainers, len(fetched), fetched)
	}
}

func TestSyncMessagesErrors(t *testing.T) {
	svc := newTestSyncService("")

	if _, err := svc.SyncMessages(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown connection, got %v", err)
	}

	conn := addChatworkConnection(t, svc)
	inactive := false
	if _, err := svc.UpdateConnection(conn.ID, ConnectionUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateConnection failed: %v", err)
	}

	_, err := svc.SyncMessages(context.Background(), conn.ID)
	var inactiveErr *domain.InactiveConnectionError
	if !errors.As(err, &inactiveErr) {
		t.Errorf("expected InactiveConnectionError, got %v", err)
	}

	other, err := svc.AddConnection(ConnectionInput{ServiceType: "slack", APIToken: "t"})
	if err != nil {
		t.Fatalf("AddConnection failed: %v", err)
	}
	_, err = svc.SyncMessages(context.Background(), other.ID)
	var unsupported *domain.UnsupportedServiceError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedServiceError, got %v", err)
	} else if unsupported.ServiceType != "slack" {
		t.Errorf("error must carry the offending service type, got %q", unsupported.ServiceType)
	}
}

func TestSyncMessagesGmail(t *testing.T) {
	longBody := strings.Repeat("a", 1200)
	encoded := base64.URLEncoding.EncodeToString([]byte(longBody))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/me/messages"):
			w.Write([]byte(`{"messages":[{"id":"m1"},{"id":"m2"}]}`))
		case strings.HasSuffix(r.URL.Path, "/users/me/messages/m1"):
			fmt.Fprintf(w, `{"id":"m1","internalDate":"1700000000000","labelIds":["INBOX","UNREAD","IMPORTANT"],"payload":{"headers":[{"name":"Subject","value":"Expense approval"},{"name":"From","value":"Boss <boss@example.com>"}],"body":{"data":"%s"}}}`, encoded)
		case strings.HasSuffix(r.URL.Path, "/users/me/messages/m2"):
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := &config.Config{GmailEndpoint: server.URL}
	svc := NewExternalSyncService(repository.NewMemoryStore(), cfg)

	conn, err := svc.AddConnection(ConnectionInput{ServiceType: "gmail", APIToken: "token"})
	if err != nil {
		t.Fatalf("AddConnection failed: %v", err)
	}

	// One unreadable mail must not fail the sync.
	messages, err := svc.SyncMessages(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("SyncMessages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected only the readable mail, got %d messages", len(messages))
	}

	msg := messages[0]
	if msg.ID != "msg_gmail_m1" || msg.ExternalMessageID != "m1" {
		t.Errorf("unexpected IDs: %+v", msg)
	}
	if msg.MessageType != domain.ServiceGmail {
		t.Errorf("unexpected message type: %s", msg.MessageType)
	}
	if msg.Subject != "Expense approval" {
		t.Errorf("unexpected subject: %q", msg.Subject)
	}
	if msg.SenderName != "Boss" || msg.SenderEmail != "boss@example.com" {
		t.Errorf("unexpected sender fields: name=%q email=%q", msg.SenderName, msg.SenderEmail)
	}
	if !msg.HasLabel("IMPORTANT") || len(msg.Labels) != 3 {
		t.Errorf("labels must carry over, got %v", msg.Labels)
	}
	if got := len([]rune(msg.Body)); got != 1000 {
		t.Errorf("expected body capped at 1000 runes, got %d", got)
	}
	if msg.ReceivedAt.Unix() != 1700000000 {
		t.Errorf("unexpected received_at: %v", msg.ReceivedAt)
	}
	if msg.RoomID != "" || msg.RoomName != "" {
		t.Errorf("mail messages have no room fields, got %+v", msg)
	}
}

func TestSyncMessagesCrossServiceDedup(t *testing.T) {
	// Chatwork and Google Chat both produce the native ID "shared-id";
	// the dedup key must keep the two messages apart.
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"room_id":1,"name":"Approvals","type":"group"}]`))
	})
	mux.HandleFunc("/rooms/1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"message_id":"shared-id","account":{"name":"Tanaka"},"body":"from chatwork","send_time":1700000000}]`))
	})
	mux.HandleFunc("/spaces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"spaces":[{"name":"spaces/AAA","displayName":"Engineering"}]}`))
	})
	mux.HandleFunc("/spaces/AAA/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"name":"spaces/AAA/messages/shared-id","sender":{"displayName":"Sato"},"text":"from chat","createTime":"2026-08-01T10:00:00Z"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	cwConn := addChatworkConnection(t, svc)
	gcConn, err := svc.AddConnection(ConnectionInput{ServiceType: "google_chat", APIToken: "t"})
	if err != nil {
		t.Fatalf("AddConnection failed: %v", err)
	}

	if _, err := svc.SyncMessages(context.Background(), cwConn.ID); err != nil {
		t.Fatalf("chatwork sync failed: %v", err)
	}
	fromChat, err := svc.SyncMessages(context.Background(), gcConn.ID)
	if err != nil {
		t.Fatalf("google chat sync failed: %v", err)
	}
	if len(fromChat) != 1 {
		t.Fatalf("shared native ID on another service must not be dropped, got %d new messages", len(fromChat))
	}

	stored, _ := svc.GetExternalMessages()
	if len(stored) != 2 {
		t.Fatalf("expected both messages stored, got %d", len(stored))
	}
	ids := map[string]bool{}
	for _, msg := range stored {
		ids[msg.ID] = true
	}
	if !ids["msg_chatwork_shared-id"] || !ids["msg_google_chat_shared-id"] {
		t.Errorf("unexpected stored IDs: %v", ids)
	}
}

func TestSyncInFlightGuard(t *testing.T) {
	svc := newTestSyncService("").(*externalSyncService)

	if !svc.acquire("conn-1") {
		t.Fatal("first acquire must succeed")
	}
	if svc.acquire("conn-1") {
		t.Error("second acquire for the same connection must fail")
	}
	if !svc.acquire("conn-2") {
		t.Error("other connections are not blocked")
	}

	svc.release("conn-1")
	if !svc.acquire("conn-1") {
		t.Error("acquire must succeed after release")
	}
}

func TestGoogleChatSync(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/spaces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"spaces":[{"name":"spaces/AAA","displayName":"Engineering"}]}`))
	})
	mux.HandleFunc("/spaces/AAA/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"name":"spaces/AAA/messages/BBB","sender":{"displayName":"Sato","email":"sato@example.com"},"text":"review please","createTime":"2026-08-01T10:00:00Z"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	conn, err := svc.AddConnection(ConnectionInput{ServiceType: "google_chat", APIToken: "t"})
	if err != nil {
		t.Fatalf("AddConnection failed: %v", err)
	}

	messages, err := svc.SyncMessages(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("SyncMessages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	msg := messages[0]
	if msg.ID != "msg_google_chat_BBB" || msg.ExternalMessageID != "BBB" {
		t.Errorf("unexpected IDs: %+v", msg)
	}
	if msg.SenderEmail != "sato@example.com" || msg.RoomID != "spaces/AAA" {
		t.Errorf("unexpected fields: %+v", msg)
	}
}

func TestConvertMessagesEndToEnd(t *testing.T) {
	server := chatworkTestServer(t)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	sink := &sinkRecorder{}
	svc.SetTaskSink(sink)

	conn := addChatworkConnection(t, svc)
	if _, err := svc.AddSyncRule(SyncRuleInput{
		ConnectionID:    conn.ID,
		RuleName:        "urgent",
		FilterType:      "keyword",
		FilterValue:     "urgent",
		DefaultPriority: "high",
	}); err != nil {
		t.Fatalf("AddSyncRule failed: %v", err)
	}

	if _, err := svc.SyncMessages(context.Background(), conn.ID); err != nil {
		t.Fatalf("SyncMessages failed: %v", err)
	}

	tasks, err := svc.ConvertMessages(nil)
	if err != nil {
		t.Fatalf("ConvertMessages failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task (only the urgent message matches), got %d", len(tasks))
	}
	task := tasks[0]
	if task.ID != "task_chatwork_m1" || task.Priority != "high" {
		t.Errorf("unexpected task: %+v", task)
	}
	if len(sink.tasks) != 1 || sink.tasks[0].ID != task.ID {
		t.Errorf("task sink should receive the generated task, got %+v", sink.tasks)
	}

	// The conversion flags survive in the store.
	stored, _ := svc.GetExternalMessages()
	var converted int
	for _, msg := range stored {
		if msg.IsConvertedToTask {
			converted++
			if msg.TaskID != task.ID {
				t.Errorf("converted message must reference the task, got %q", msg.TaskID)
			}
		}
	}
	if converted != 1 {
		t.Errorf("expected exactly 1 converted message, got %d", converted)
	}

	// Converting again is a no-op.
	again, err := svc.ConvertMessages(nil)
	if err != nil {
		t.Fatalf("second ConvertMessages failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no tasks on reconversion, got %d", len(again))
	}
}

func TestConvertMessagesSelection(t *testing.T) {
	server := chatworkTestServer(t)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	conn := addChatworkConnection(t, svc)
	if _, err := svc.AddSyncRule(SyncRuleInput{ConnectionID: conn.ID, FilterType: "all"}); err != nil {
		t.Fatalf("AddSyncRule failed: %v", err)
	}
	if _, err := svc.SyncMessages(context.Background(), conn.ID); err != nil {
		t.Fatalf("SyncMessages failed: %v", err)
	}

	tasks, err := svc.ConvertMessages([]string{"msg_chatwork_m2"})
	if err != nil {
		t.Fatalf("ConvertMessages failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "task_chatwork_m2" {
		t.Fatalf("expected only the selected message converted, got %+v", tasks)
	}
}

func TestTestConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"account_id":1,"name":"Tanaka","mail":"tanaka@example.com"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := newTestSyncService(server.URL)
	conn := addChatworkConnection(t, svc)

	status, err := svc.TestConnection(context.Background(), conn.ID)
	if err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
	if status != "authenticated as Tanaka" {
		t.Errorf("unexpected status: %q", status)
	}

	if _, err := svc.TestConnection(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
