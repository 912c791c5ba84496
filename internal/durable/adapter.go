package durable

import (
	"context"

	"skillswap/internal/domain"
)

// Adapter is the port to the authoritative backend for relationships and
// messages. Implementations may be unavailable or only partially populated
// for a given pair: callers treat an empty result as "not yet durable", not
// as an error, and fall back to the local cache.
type Adapter interface {
	// CreateOrUpdateRelationship upserts by the unordered participant pair
	// and returns the stored row, assigning an id on first write.
	CreateOrUpdateRelationship(ctx context.Context, rel domain.Relationship) (domain.Relationship, error)

	// ListRelationshipsFor returns every relationship involving the
	// participant, regardless of which side initiated.
	ListRelationshipsFor(ctx context.Context, participant string) ([]domain.Relationship, error)

	// AppendMessage durably appends a message and returns it with its
	// authoritative id and timestamp.
	AppendMessage(ctx context.Context, relationshipID, senderID, body string) (domain.Message, error)

	// ListMessages returns the authoritative ordered message list for a
	// relationship, ascending by creation time.
	ListMessages(ctx context.Context, relationshipID string) ([]domain.Message, error)
}
