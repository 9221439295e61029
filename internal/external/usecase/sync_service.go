package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"approvalhub-backend/internal/external/domain"
	"approvalhub-backend/internal/external/repository"
	taskdomain "approvalhub-backend/internal/task/domain"
	"approvalhub-backend/pkg/chatwork"
	"approvalhub-backend/pkg/config"
	"approvalhub-backend/pkg/gmail"
	"approvalhub-backend/pkg/googlechat"
)

// storeKey is the blob key holding the whole sync document.
const storeKey = "external_sync_data"

const (
	// maxSyncContainers caps how many rooms or spaces one sync walks.
	maxSyncContainers = 5
	// gmailMaxResults caps how many unread mails one sync fetches.
	gmailMaxResults = 20
	// gmailBodyLimit caps the stored body length of a synced mail, in runes.
	gmailBodyLimit = 1000
)

// syncDocument is the single JSON document persisted under storeKey.
type syncDocument struct {
	Connections      []domain.Connection      `json:"connections"`
	SyncRules        []domain.SyncRule        `json:"syncRules"`
	ExternalMessages []domain.ExternalMessage `json:"externalMessages"`
}

type externalSyncService struct {
	store    repository.Store
	gmailSvc *gmail.Service

	chatworkBaseURL   string
	googleChatBaseURL string

	taskSink TaskSink

	// mu serializes read-modify-write cycles on the sync document.
	mu sync.Mutex

	// inFlight tracks connections with a sync currently running.
	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

// NewExternalSyncService creates the sync engine on top of a blob store.
func NewExternalSyncService(store repository.Store, cfg *config.Config) ExternalSyncUsecase {
	gmailSvc := gmail.NewService()
	gmailSvc.SetEndpoint(cfg.GmailEndpoint)

	return &externalSyncService{
		store:             store,
		gmailSvc:          gmailSvc,
		chatworkBaseURL:   cfg.ChatworkBaseURL,
		googleChatBaseURL: cfg.GoogleChatBaseURL,
		inFlight:          make(map[string]struct{}),
	}
}

func (s *externalSyncService) SetTaskSink(sink TaskSink) {
	s.taskSink = sink
}

func (s *externalSyncService) load() (*syncDocument, error) {
	blob, err := s.store.Read(storeKey)
	if err != nil {
		return nil, fmt.Errorf("reading sync document: %w", err)
	}

	doc := &syncDocument{}
	if len(blob) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(blob, doc); err != nil {
		return nil, fmt.Errorf("decoding sync document: %w", err)
	}
	return doc, nil
}

func (s *externalSyncService) save(doc *syncDocument) error {
	blob, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding sync document: %w", err)
	}
	if err := s.store.Write(storeKey, blob); err != nil {
		return fmt.Errorf("writing sync document: %w", err)
	}
	return nil
}

// --- connections ---

func (s *externalSyncService) GetConnections() ([]domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Connections, nil
}

func (s *externalSyncService) AddConnection(input ConnectionInput) (*domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	interval := input.SyncIntervalMinutes
	if interval <= 0 {
		interval = 15
	}

	now := time.Now()
	conn := domain.Connection{
		ID:                  uuid.New().String(),
		ServiceType:         domain.ServiceType(input.ServiceType),
		ServiceName:         input.ServiceName,
		AccountEmail:        input.AccountEmail,
		APIToken:            input.APIToken,
		IsActive:            isActive,
		AutoSyncEnabled:     input.AutoSyncEnabled,
		SyncIntervalMinutes: interval,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	doc.Connections = append(doc.Connections, conn)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *externalSyncService) UpdateConnection(id string, updates ConnectionUpdate) (*domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	idx := findConnection(doc, id)
	if idx < 0 {
		return nil, &domain.NotFoundError{Resource: "connection", ID: id}
	}

	conn := &doc.Connections[idx]
	if updates.ServiceName != nil {
		conn.ServiceName = *updates.ServiceName
	}
	if updates.AccountEmail != nil {
		conn.AccountEmail = *updates.AccountEmail
	}
	if updates.APIToken != nil {
		conn.APIToken = *updates.APIToken
	}
	if updates.IsActive != nil {
		conn.IsActive = *updates.IsActive
	}
	if updates.AutoSyncEnabled != nil {
		conn.AutoSyncEnabled = *updates.AutoSyncEnabled
	}
	if updates.SyncIntervalMinutes != nil {
		conn.SyncIntervalMinutes = *updates.SyncIntervalMinutes
	}
	conn.UpdatedAt = time.Now()

	if err := s.save(doc); err != nil {
		return nil, err
	}

	out := *conn
	return &out, nil
}

// DeleteConnection removes the connection only. Its rules and messages
// stay behind and keep referencing the deleted connection's ID.
func (s *externalSyncService) DeleteConnection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	idx := findConnection(doc, id)
	if idx < 0 {
		return &domain.NotFoundError{Resource: "connection", ID: id}
	}

	doc.Connections = append(doc.Connections[:idx], doc.Connections[idx+1:]...)
	return s.save(doc)
}

// --- sync rules ---

func (s *externalSyncService) GetSyncRules() ([]domain.SyncRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.SyncRules, nil
}

func (s *externalSyncService) AddSyncRule(input SyncRuleInput) (*domain.SyncRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	now := time.Now()
	rule := domain.SyncRule{
		ID:              uuid.New().String(),
		ConnectionID:    input.ConnectionID,
		RuleName:        input.RuleName,
		FilterType:      domain.FilterType(input.FilterType),
		FilterValue:     input.FilterValue,
		DefaultPriority: taskdomain.ParsePriority(input.DefaultPriority),
		DefaultAssignee: input.DefaultAssignee,
		AutoCreateTask:  input.AutoCreateTask,
		IsActive:        isActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	doc.SyncRules = append(doc.SyncRules, rule)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *externalSyncService) UpdateSyncRule(id string, updates SyncRuleUpdate) (*domain.SyncRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range doc.SyncRules {
		if doc.SyncRules[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &domain.NotFoundError{Resource: "sync rule", ID: id}
	}

	rule := &doc.SyncRules[idx]
	if updates.RuleName != nil {
		rule.RuleName = *updates.RuleName
	}
	if updates.FilterType != nil {
		rule.FilterType = domain.FilterType(*updates.FilterType)
	}
	if updates.FilterValue != nil {
		rule.FilterValue = *updates.FilterValue
	}
	if updates.DefaultPriority != nil {
		rule.DefaultPriority = taskdomain.ParsePriority(*updates.DefaultPriority)
	}
	if updates.DefaultAssignee != nil {
		rule.DefaultAssignee = *updates.DefaultAssignee
	}
	if updates.AutoCreateTask != nil {
		rule.AutoCreateTask = *updates.AutoCreateTask
	}
	if updates.IsActive != nil {
		rule.IsActive = *updates.IsActive
	}
	rule.UpdatedAt = time.Now()

	if err := s.save(doc); err != nil {
		return nil, err
	}

	out := *rule
	return &out, nil
}

func (s *externalSyncService) DeleteSyncRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for i := range doc.SyncRules {
		if doc.SyncRules[i].ID == id {
			doc.SyncRules = append(doc.SyncRules[:i], doc.SyncRules[i+1:]...)
			return s.save(doc)
		}
	}
	return &domain.NotFoundError{Resource: "sync rule", ID: id}
}

// --- messages ---

func (s *externalSyncService) GetExternalMessages() ([]domain.ExternalMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.ExternalMessages, nil
}

// --- sync ---

func (s *externalSyncService) SyncMessages(ctx context.Context, connectionID string) ([]domain.ExternalMessage, error) {
	if !s.acquire(connectionID) {
		return nil, &domain.SyncInProgressError{ConnectionID: connectionID}
	}
	defer s.release(connectionID)

	// Snapshot the connection without holding the document lock across
	// the remote fetch.
	s.mu.Lock()
	doc, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	idx := findConnection(doc, connectionID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, &domain.NotFoundError{Resource: "connection", ID: connectionID}
	}
	conn := doc.Connections[idx]
	s.mu.Unlock()

	if !conn.IsActive {
		return nil, &domain.InactiveConnectionError{ConnectionID: connectionID}
	}

	var fetched []domain.ExternalMessage
	switch conn.ServiceType {
	case domain.ServiceChatwork:
		fetched, err = s.fetchChatwork(ctx, &conn)
	case domain.ServiceGoogleChat:
		fetched, err = s.fetchGoogleChat(ctx, &conn)
	case domain.ServiceGmail:
		fetched, err = s.fetchGmail(ctx, &conn)
	default:
		err = &domain.UnsupportedServiceError{ServiceType: conn.ServiceType}
	}
	if err != nil {
		log.Printf("[ExternalSync] sync failed for connection %s: %v", connectionID, err)
		return nil, err
	}

	// Merge under the document lock: drop messages already stored, append
	// the rest, and stamp the connection's last sync time.
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err = s.load()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(doc.ExternalMessages))
	for i := range doc.ExternalMessages {
		seen[doc.ExternalMessages[i].DedupKey()] = struct{}{}
	}

	var newMessages []domain.ExternalMessage
	for _, msg := range fetched {
		key := msg.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		newMessages = append(newMessages, msg)
	}

	doc.ExternalMessages = append(doc.ExternalMessages, newMessages...)

	if idx := findConnection(doc, connectionID); idx >= 0 {
		now := time.Now()
		doc.Connections[idx].LastSyncAt = &now
		doc.Connections[idx].UpdatedAt = now
	}

	if err := s.save(doc); err != nil {
		return nil, err
	}

	log.Printf("[ExternalSync] connection %s: %d fetched, %d new", connectionID, len(fetched), len(newMessages))
	return newMessages, nil
}

func (s *externalSyncService) fetchChatwork(ctx context.Context, conn *domain.Connection) ([]domain.ExternalMessage, error) {
	client := chatwork.NewClient(conn.APIToken)
	client.SetBaseURL(s.chatworkBaseURL)

	rooms, err := client.GetRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(rooms) > maxSyncContainers {
		rooms = rooms[:maxSyncContainers]
	}

	var all []domain.ExternalMessage
	for _, room := range rooms {
		messages, err := client.GetMessages(ctx, room.RoomID, false)
		if err != nil {
			// One unreadable room must not sink the whole sync.
			log.Printf("[ExternalSync] skipping chatwork room %d: %v", room.RoomID, err)
			continue
		}

		now := time.Now()
		for _, msg := range messages {
			all = append(all, domain.ExternalMessage{
				ID:                domain.MessageID(domain.ServiceChatwork, msg.MessageID),
				ConnectionID:      conn.ID,
				ExternalMessageID: msg.MessageID,
				MessageType:       domain.ServiceChatwork,
				SenderName:        msg.Account.Name,
				Body:              msg.Body,
				RoomID:            chatwork.RoomIDString(room.RoomID),
				RoomName:          room.Name,
				Labels:            []string{},
				ReceivedAt:        chatwork.ParseSendTime(msg.SendTime),
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}
	}
	return all, nil
}

func (s *externalSyncService) fetchGoogleChat(ctx context.Context, conn *domain.Connection) ([]domain.ExternalMessage, error) {
	client := googlechat.NewClient(conn.APIToken)
	client.SetBaseURL(s.googleChatBaseURL)

	spaces, err := client.ListSpaces(ctx)
	if err != nil {
		return nil, err
	}
	if len(spaces) > maxSyncContainers {
		spaces = spaces[:maxSyncContainers]
	}

	var all []domain.ExternalMessage
	for _, space := range spaces {
		messages, err := client.ListMessages(ctx, space.Name, 0)
		if err != nil {
			log.Printf("[ExternalSync] skipping google chat space %s: %v", space.Name, err)
			continue
		}

		now := time.Now()
		for _, msg := range messages {
			messageID := googlechat.MessageID(msg)
			if messageID == "" {
				messageID = strconv.FormatInt(time.Now().UnixMilli(), 10)
			}
			receivedAt := googlechat.ParseCreateTime(msg)
			if receivedAt.IsZero() {
				receivedAt = now
			}

			all = append(all, domain.ExternalMessage{
				ID:                domain.MessageID(domain.ServiceGoogleChat, messageID),
				ConnectionID:      conn.ID,
				ExternalMessageID: messageID,
				MessageType:       domain.ServiceGoogleChat,
				SenderName:        googlechat.SenderName(msg),
				SenderEmail:       senderEmail(msg),
				Body:              googlechat.MessageText(msg),
				RoomID:            space.Name,
				RoomName:          space.DisplayName,
				Labels:            []string{},
				ReceivedAt:        receivedAt,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}
	}
	return all, nil
}

func senderEmail(msg googlechat.Message) string {
	if msg.Sender == nil {
		return ""
	}
	return msg.Sender.Email
}

func (s *externalSyncService) fetchGmail(ctx context.Context, conn *domain.Connection) ([]domain.ExternalMessage, error) {
	stubs, err := s.gmailSvc.ListMessages(ctx, conn.APIToken, gmailMaxResults, "INBOX", "UNREAD")
	if err != nil {
		return nil, err
	}

	var all []domain.ExternalMessage
	for _, stub := range stubs {
		full, err := s.gmailSvc.GetMessage(ctx, conn.APIToken, stub.Id)
		if err != nil {
			// One broken mail must not sink the whole sync.
			log.Printf("[ExternalSync] skipping gmail message %s: %v", stub.Id, err)
			continue
		}

		name, email := gmail.ParseFrom(gmail.GetHeader(full, "From"))
		labels := full.LabelIds
		if labels == nil {
			labels = []string{}
		}

		now := time.Now()
		all = append(all, domain.ExternalMessage{
			ID:                domain.MessageID(domain.ServiceGmail, full.Id),
			ConnectionID:      conn.ID,
			ExternalMessageID: full.Id,
			MessageType:       domain.ServiceGmail,
			SenderName:        name,
			SenderEmail:       email,
			Subject:           gmail.GetHeader(full, "Subject"),
			Body:              truncateRunes(gmail.GetBody(full), gmailBodyLimit),
			Labels:            labels,
			ReceivedAt:        gmail.ReceivedAt(full),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return all, nil
}

// --- conversion ---

func (s *externalSyncService) ConvertMessages(messageIDs []string) ([]*taskdomain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	var selected []*domain.ExternalMessage
	if len(messageIDs) == 0 {
		for i := range doc.ExternalMessages {
			selected = append(selected, &doc.ExternalMessages[i])
		}
	} else {
		wanted := make(map[string]struct{}, len(messageIDs))
		for _, id := range messageIDs {
			wanted[id] = struct{}{}
		}
		for i := range doc.ExternalMessages {
			if _, ok := wanted[doc.ExternalMessages[i].ID]; ok {
				selected = append(selected, &doc.ExternalMessages[i])
			}
		}
	}

	tasks := ConvertMessagesToTasks(selected, doc.SyncRules)

	if err := s.save(doc); err != nil {
		return nil, err
	}

	if s.taskSink != nil {
		for _, task := range tasks {
			if err := s.taskSink.CreateFromExternal(task); err != nil {
				log.Printf("[ExternalSync] storing task %s failed: %v", task.ID, err)
			}
		}
	}

	log.Printf("[ExternalSync] converted %d of %d messages", len(tasks), len(selected))
	return tasks, nil
}

// --- connection testing ---

func (s *externalSyncService) TestConnection(ctx context.Context, connectionID string) (string, error) {
	s.mu.Lock()
	doc, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	idx := findConnection(doc, connectionID)
	if idx < 0 {
		s.mu.Unlock()
		return "", &domain.NotFoundError{Resource: "connection", ID: connectionID}
	}
	conn := doc.Connections[idx]
	s.mu.Unlock()

	switch conn.ServiceType {
	case domain.ServiceChatwork:
		client := chatwork.NewClient(conn.APIToken)
		client.SetBaseURL(s.chatworkBaseURL)
		me, err := client.GetMe(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("authenticated as %s", me.Name), nil

	case domain.ServiceGoogleChat:
		client := googlechat.NewClient(conn.APIToken)
		client.SetBaseURL(s.googleChatBaseURL)
		spaces, err := client.ListSpaces(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d spaces visible", len(spaces)), nil

	case domain.ServiceGmail:
		profile, err := s.gmailSvc.GetProfile(ctx, conn.APIToken)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("authenticated as %s", profile.EmailAddress), nil

	default:
		return "", &domain.UnsupportedServiceError{ServiceType: conn.ServiceType}
	}
}

// --- helpers ---

func findConnection(doc *syncDocument, id string) int {
	for i := range doc.Connections {
		if doc.Connections[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *externalSyncService) acquire(connectionID string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()

	if _, busy := s.inFlight[connectionID]; busy {
		return false
	}
	s.inFlight[connectionID] = struct{}{}
	return true
}

func (s *externalSyncService) release(connectionID string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, connectionID)
}
