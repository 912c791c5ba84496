package domain

import "time"

// NotificationKind classifies an activity record.
type NotificationKind string

const (
	NotifyConnection NotificationKind = "connection"
	NotifyMessage    NotificationKind = "message"
	NotifyMeeting    NotificationKind = "meeting"
)

// NotificationRecord is a derived, append-only activity entry in a
// participant's bounded feed.
type NotificationRecord struct {
	ID                    string           `json:"id"`
	Kind                  NotificationKind `json:"kind"`
	Recipient             string           `json:"recipient"`
	Body                  string           `json:"body"`
	IsRead                bool             `json:"is_read"`
	CreatedAt             time.Time        `json:"created_at"`
	RelatedRelationshipID string           `json:"related_relationship_id"`
}
