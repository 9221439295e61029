package usecase

import (
	"strings"

	"approvalhub-backend/internal/external/domain"
)

// MatchesRule decides whether a message satisfies a rule's filter.
// A malformed or empty filter value matches nothing rather than failing.
func MatchesRule(msg *domain.ExternalMessage, rule *domain.SyncRule) bool {
	switch rule.FilterType {
	case domain.FilterAll:
		return true

	case domain.FilterKeyword:
		keywords := splitTerms(rule.FilterValue, true)
		text := strings.ToLower(msg.Subject + " " + msg.Body)
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				return true
			}
		}
		return false

	case domain.FilterSender:
		senders := splitTerms(rule.FilterValue, true)
		name := strings.ToLower(msg.SenderName)
		email := strings.ToLower(msg.SenderEmail)
		for _, sender := range senders {
			if strings.Contains(name, sender) || (email != "" && strings.Contains(email, sender)) {
				return true
			}
		}
		return false

	case domain.FilterLabel:
		for _, label := range splitTerms(rule.FilterValue, false) {
			if msg.HasLabel(label) {
				return true
			}
		}
		return false

	case domain.FilterRoom:
		return msg.RoomID == rule.FilterValue

	default:
		return false
	}
}

// splitTerms splits a comma-separated filter value into trimmed,
// non-empty terms, lower-casing them when fold is set. Label terms keep
// their case because label matching is exact.
func splitTerms(value string, fold bool) []string {
	var terms []string
	for _, raw := range strings.Split(value, ",") {
		term := strings.TrimSpace(raw)
		if term == "" {
			continue
		}
		if fold {
			term = strings.ToLower(term)
		}
		terms = append(terms, term)
	}
	return terms
}
