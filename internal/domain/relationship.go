package domain

import (
	"strings"
	"time"
)

// State is the canonical stored relationship state. Pending is stored once
// with the requester recorded; which side "sent" the request is computed on
// read, never stored twice.
type State string

const (
	StateNotConnected State = "NOT_CONNECTED"
	StatePending      State = "PENDING"
	StateConnected    State = "CONNECTED"
	StateRejected     State = "REJECTED"
)

// PerspectiveState is a relationship state as seen by one participant.
type PerspectiveState string

const (
	NotConnected    PerspectiveState = "NOT_CONNECTED"
	PendingSent     PerspectiveState = "PENDING_SENT"
	PendingReceived PerspectiveState = "PENDING_RECEIVED"
	Connected       PerspectiveState = "CONNECTED"
	Rejected        PerspectiveState = "REJECTED"
)

// Relationship is the connection between exactly two participants. The pair
// is unordered: ParticipantA/ParticipantB are stored in lexical order and
// lookups work regardless of which side initiated.
type Relationship struct {
	ID           string    `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	RequesterID  string    `json:"requester_id"`
	State        State     `json:"state"`
	RequestedAt  time.Time `json:"requested_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// CacheOnly marks a relationship the durable store does not know about
	// yet (seeded or written while the backend was unreachable). Cleared on
	// the first successful durable write.
	CacheOnly bool `json:"cache_only,omitempty"`
}

// PairKey returns the canonical unordered-pair key for two participants.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}

// NewRelationship builds a relationship with the pair in canonical order.
func NewRelationship(id, requester, other string, state State, at time.Time) Relationship {
	a, b := requester, other
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return Relationship{
		ID:           id,
		ParticipantA: a,
		ParticipantB: b,
		RequesterID:  requester,
		State:        state,
		RequestedAt:  at,
		UpdatedAt:    at,
	}
}

// Key returns the unordered-pair key of this relationship.
func (r Relationship) Key() string {
	return PairKey(r.ParticipantA, r.ParticipantB)
}

// Involves reports whether the participant is one of the pair.
func (r Relationship) Involves(p string) bool {
	return r.ParticipantA == p || r.ParticipantB == p
}

// Other returns the participant opposite p, or "" if p is not in the pair.
func (r Relationship) Other(p string) string {
	switch p {
	case r.ParticipantA:
		return r.ParticipantB
	case r.ParticipantB:
		return r.ParticipantA
	}
	return ""
}

// StateFor normalizes the stored state to the viewer's perspective.
// A pending request reads PENDING_SENT to its requester and PENDING_RECEIVED
// to the other side. A rejection reads REJECTED only to the requester; the
// party who rejected sees NOT_CONNECTED.
func (r Relationship) StateFor(viewer string) PerspectiveState {
	switch r.State {
	case StatePending:
		if viewer == r.RequesterID {
			return PendingSent
		}
		return PendingReceived
	case StateConnected:
		return Connected
	case StateRejected:
		if viewer == r.RequesterID {
			return Rejected
		}
		return NotConnected
	default:
		return NotConnected
	}
}
