package durable

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillswap/internal/domain"
)

// Memory is an in-process durable adapter used for the offline demo driver
// and as the default test double.
type Memory struct {
	mu       sync.Mutex
	byPair   map[string]domain.Relationship
	messages map[string][]domain.Message
}

// NewMemory creates an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{
		byPair:   make(map[string]domain.Relationship),
		messages: make(map[string][]domain.Message),
	}
}

func (m *Memory) CreateOrUpdateRelationship(_ context.Context, rel domain.Relationship) (domain.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rel.Key()
	if existing, ok := m.byPair[key]; ok {
		rel.ID = existing.ID
	} else if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	rel.UpdatedAt = time.Now()
	m.byPair[key] = rel
	return rel, nil
}

func (m *Memory) ListRelationshipsFor(_ context.Context, participant string) ([]domain.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Relationship
	for _, rel := range m.byPair {
		if rel.Involves(participant) {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (m *Memory) AppendMessage(_ context.Context, relationshipID, senderID, body string) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := domain.Message{
		ID:             uuid.New().String(),
		RelationshipID: relationshipID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
		Delivery:       domain.DeliverySent,
	}
	m.messages[relationshipID] = append(m.messages[relationshipID], msg)
	return msg, nil
}

func (m *Memory) ListMessages(_ context.Context, relationshipID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[relationshipID]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
