package domain

import "time"

// ExternalMessage is the normalized form of one remote message,
// regardless of which service it came from. Records are append-only:
// after a sync stores a message, only the conversion fields
// (IsConvertedToTask, TaskID) are ever mutated.
type ExternalMessage struct {
	ID                string      `json:"id"`
	ConnectionID      string      `json:"connection_id"`
	ExternalMessageID string      `json:"external_message_id"`
	MessageType       ServiceType `json:"message_type"`
	SenderName        string      `json:"sender_name"`
	SenderEmail       string      `json:"sender_email,omitempty"`
	Subject           string      `json:"subject,omitempty"`
	Body              string      `json:"body"`
	RoomID            string      `json:"room_id,omitempty"`
	RoomName          string      `json:"room_name,omitempty"`
	Labels            []string    `json:"labels"`
	IsConvertedToTask bool        `json:"is_converted_to_task"`
	TaskID            string      `json:"task_id,omitempty"`
	ReceivedAt        time.Time   `json:"received_at"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// MessageID builds the deterministic record ID for a message.
func MessageID(serviceType ServiceType, externalMessageID string) string {
	return "msg_" + string(serviceType) + "_" + externalMessageID
}

// TaskID builds the deterministic ID of the task generated from a message.
func TaskID(serviceType ServiceType, externalMessageID string) string {
	return "task_" + string(serviceType) + "_" + externalMessageID
}

// DedupKey is the identity used to decide whether an incoming message is
// already stored. Two services can produce the same native ID, so the
// key combines the service type with the native ID.
func (m *ExternalMessage) DedupKey() string {
	return string(m.MessageType) + ":" + m.ExternalMessageID
}

// HasLabel reports whether the message carries the exact label.
func (m *ExternalMessage) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}
