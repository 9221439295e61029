package domain

import "time"

// ServiceType identifies which external messaging service a connection
// talks to. It selects the adapter used during sync.
type ServiceType string

const (
	ServiceChatwork   ServiceType = "chatwork"
	ServiceGoogleChat ServiceType = "google_chat"
	ServiceGmail      ServiceType = "gmail"
)

// Connection holds one external-service credential set plus its sync
// configuration. Connections live inside the sync document blob, not in
// their own table.
type Connection struct {
	ID                  string      `json:"id"`
	ServiceType         ServiceType `json:"service_type"`
	ServiceName         string      `json:"service_name"`
	AccountEmail        string      `json:"account_email"`
	APIToken            string      `json:"api_token"`
	IsActive            bool        `json:"is_active"`
	AutoSyncEnabled     bool        `json:"auto_sync_enabled"`
	SyncIntervalMinutes int         `json:"sync_interval_minutes"`
	LastSyncAt          *time.Time  `json:"last_sync_at"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}
