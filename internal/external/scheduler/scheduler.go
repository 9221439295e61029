package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"approvalhub-backend/internal/external/domain"
	"approvalhub-backend/internal/external/usecase"
)

// AutoSyncScheduler periodically syncs connections that have auto-sync
// enabled and whose sync interval has elapsed.
type AutoSyncScheduler struct {
	syncUsecase usecase.ExternalSyncUsecase
	interval    time.Duration
	stopChan    chan struct{}
}

// NewAutoSyncScheduler creates a new scheduler
func NewAutoSyncScheduler(syncUsecase usecase.ExternalSyncUsecase) *AutoSyncScheduler {
	return &AutoSyncScheduler{
		syncUsecase: syncUsecase,
		interval:    1 * time.Minute, // Check every minute
		stopChan:    make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *AutoSyncScheduler) Start() {
	log.Println("[AutoSync] Starting auto-sync scheduler (interval: 1 minute)")

	go func() {
		// Run immediately on start
		s.syncDueConnections()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.syncDueConnections()
			case <-s.stopChan:
				log.Println("[AutoSync] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *AutoSyncScheduler) Stop() {
	close(s.stopChan)
}

// syncDueConnections syncs every active connection whose auto-sync
// interval has elapsed since its last sync.
func (s *AutoSyncScheduler) syncDueConnections() {
	connections, err := s.syncUsecase.GetConnections()
	if err != nil {
		log.Printf("[AutoSync] Error listing connections: %v", err)
		return
	}

	now := time.Now()
	for _, conn := range connections {
		if !conn.IsActive || !conn.AutoSyncEnabled {
			continue
		}
		if !isDue(&conn, now) {
			continue
		}

		messages, err := s.syncUsecase.SyncMessages(context.Background(), conn.ID)
		if err != nil {
			// A sync already running for this connection is expected
			// when a manual sync overlaps the ticker.
			var inProgress *domain.SyncInProgressError
			if errors.As(err, &inProgress) {
				continue
			}
			log.Printf("[AutoSync] Error syncing connection %s: %v", conn.ID, err)
			continue
		}

		if len(messages) > 0 {
			log.Printf("[AutoSync] Connection %s: %d new messages", conn.ID, len(messages))
		}
	}
}

func isDue(conn *domain.Connection, now time.Time) bool {
	if conn.LastSyncAt == nil {
		return true
	}
	interval := time.Duration(conn.SyncIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return now.Sub(*conn.LastSyncAt) >= interval
}
