package googlechat

import (
	"strings"
	"time"

	taskdomain "approvalhub-backend/internal/task/domain"
)

// MessageText returns the text content of a message, falling back to the
// slash-command argument text when the plain text field is empty.
func MessageText(msg Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.ArgumentText
}

// MessageID extracts the bare message ID from the resource name
// ("spaces/AAAA/messages/BBBB" -> "BBBB").
func MessageID(msg Message) string {
	if msg.Name == "" {
		return ""
	}
	parts := strings.Split(msg.Name, "/")
	return parts[len(parts)-1]
}

// SenderName returns the sender's display name, or "Unknown" when the
// sender block is missing.
func SenderName(msg Message) string {
	if msg.Sender == nil || msg.Sender.DisplayName == "" {
		return "Unknown"
	}
	return msg.Sender.DisplayName
}

// ParseCreateTime parses the RFC 3339 createTime; zero time on failure.
func ParseCreateTime(msg Message) time.Time {
	if msg.CreateTime == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, msg.CreateTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ConvertMessageToTask builds a task directly from one Google Chat
// message, without involving sync rules.
func ConvertMessageToTask(msg Message, spaceDisplayName string, defaultPriority taskdomain.Priority) *taskdomain.Task {
	text := MessageText(msg)
	title := truncateRunes(firstLine(text), 100)
	if title == "" {
		title = "Google Chat message"
	}

	description := "[GOOGLE_CHAT] " + spaceDisplayName + "\nFrom: " + SenderName(msg) + "\n\n" + text

	createdAt := ParseCreateTime(msg)
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &taskdomain.Task{
		ID:          "gchat_" + MessageID(msg),
		Title:       title,
		Description: description,
		Status:      taskdomain.TaskStatusPending,
		Priority:    defaultPriority,
		Assignee:    "Auto-created from Google Chat",
		CreatedAt:   createdAt,
		UpdatedAt:   time.Now(),
		ExternalSource: taskdomain.ExternalSource{
			Type:      "google_chat",
			MessageID: msg.Name,
		},
	}
}

// FilterMessagesByKeywords returns the messages whose text contains any
// keyword, case-insensitive. An empty keyword list matches everything.
func FilterMessagesByKeywords(messages []Message, keywords []string) []Message {
	if len(keywords) == 0 {
		return messages
	}

	var matched []Message
	for _, msg := range messages {
		text := strings.ToLower(MessageText(msg))
		for _, keyword := range keywords {
			if keyword != "" && strings.Contains(text, strings.ToLower(keyword)) {
				matched = append(matched, msg)
				break
			}
		}
	}
	return matched
}

// FilterMessagesBySender returns the messages sent by any of the given
// email addresses (exact match).
func FilterMessagesBySender(messages []Message, senderEmails []string) []Message {
	if len(senderEmails) == 0 {
		return messages
	}

	var matched []Message
	for _, msg := range messages {
		if msg.Sender == nil {
			continue
		}
		for _, email := range senderEmails {
			if msg.Sender.Email == email {
				matched = append(matched, msg)
				break
			}
		}
	}
	return matched
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
