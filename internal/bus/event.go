package bus

import "time"

// Partition names for the three state partitions views observe. Kinds are
// dot-suffixed refinements of a partition (e.g. "conversations.message"),
// so subscribing to a bare partition name receives every refinement.
const (
	Connections   = "connections"
	Conversations = "conversations"
	Notifications = "notifications"
)

// Event announces that a state partition changed. It carries no payload:
// subscribers re-query the owning manager for current state, which keeps
// handlers idempotent under rapid repeated emits.
type Event struct {
	Kind      string
	Timestamp time.Time
}
