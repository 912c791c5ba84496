package domain

import "time"

// ConversationMeta is UI-local per-relationship state. It is cache-only and
// survives independently of whether the relationship is durable.
type ConversationMeta struct {
	Pinned      bool      `json:"pinned"`
	Muted       bool      `json:"muted"`
	Archived    bool      `json:"archived"`
	UnreadCount int       `json:"unread_count"`
	Typing      bool      `json:"typing"`
	Meetings    []Meeting `json:"meetings,omitempty"`
}

// Meeting is a scheduled skill-exchange session between two connected
// participants.
type Meeting struct {
	ID          string    `json:"id"`
	ScheduledBy string    `json:"scheduled_by"`
	At          time.Time `json:"at"`
	Note        string    `json:"note,omitempty"`
}
