package domain

import "time"

// DeliveryState tracks a self-authored message through its send pipeline.
// Inbound messages from the other participant enter at Received and never
// transition locally.
type DeliveryState string

const (
	DeliverySending   DeliveryState = "SENDING"
	DeliverySent      DeliveryState = "SENT"
	DeliveryDelivered DeliveryState = "DELIVERED"
	DeliveryRead      DeliveryState = "READ"
	DeliveryReceived  DeliveryState = "RECEIVED"
)

var deliveryRank = map[DeliveryState]int{
	DeliverySending:   0,
	DeliverySent:      1,
	DeliveryDelivered: 2,
	DeliveryRead:      3,
}

// CanAdvance reports whether moving from one delivery state to another keeps
// the progression monotonic. Received is terminal.
func CanAdvance(from, to DeliveryState) bool {
	if from == DeliveryReceived || to == DeliveryReceived {
		return false
	}
	return deliveryRank[to] > deliveryRank[from]
}

// Message belongs to exactly one relationship. Optimistic local messages use
// a temporary id which is replaced, never merely hidden, once the durable
// write confirms.
type Message struct {
	ID             string        `json:"id"`
	RelationshipID string        `json:"relationship_id"`
	SenderID       string        `json:"sender_id"`
	Body           string        `json:"body"`
	CreatedAt      time.Time     `json:"created_at"`
	Delivery       DeliveryState `json:"delivery"`
	Starred        bool          `json:"starred"`
	Optimistic     bool          `json:"optimistic"`
}

// SameLogicalSend reports whether two messages represent the same logical
// send: same sender and body with timestamps within the given tolerance.
// Used to match an optimistic entry against its durable counterpart, whose
// id never equals the temporary one.
func SameLogicalSend(a, b Message, tolerance time.Duration) bool {
	if a.SenderID != b.SenderID || a.Body != b.Body {
		return false
	}
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
