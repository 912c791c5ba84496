package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillswap/internal/bus"
	"skillswap/internal/cache"
	"skillswap/internal/domain"
)

// FeedCap bounds each participant's feed; the oldest records are evicted.
const FeedCap = 50

// Notifier derives activity records from lifecycle and conversation
// transitions and appends them to a bounded per-participant feed.
type Notifier struct {
	mu     sync.Mutex
	cache  *cache.DB
	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time
}

// New creates a notifier backed by the local cache.
func New(db *cache.DB, b *bus.Bus, logger *zap.Logger) *Notifier {
	return &Notifier{
		cache:  db,
		bus:    b,
		logger: logger,
		now:    time.Now,
	}
}

// Record prepends a notification to the recipient's feed, truncates the feed
// to FeedCap, marks semantically-related older records read (same kind and
// relationship), and signals the notifications partition.
func (n *Notifier) Record(kind domain.NotificationKind, recipient, body, relationshipID string) (domain.NotificationRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	feed, err := cache.Load[[]domain.NotificationRecord](n.cache, cache.NotificationsNS)
	if err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("load notification feed: %w", err)
	}

	rec := domain.NotificationRecord{
		ID:                    uuid.New().String(),
		Kind:                  kind,
		Recipient:             recipient,
		Body:                  body,
		CreatedAt:             n.now(),
		RelatedRelationshipID: relationshipID,
	}

	for i := range feed {
		if feed[i].RelatedRelationshipID == relationshipID && feed[i].Kind == kind {
			feed[i].IsRead = true
		}
	}

	feed = append([]domain.NotificationRecord{rec}, feed...)
	feed = truncatePerRecipient(feed, recipient)

	if err := cache.Store(n.cache, cache.NotificationsNS, feed); err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("store notification feed: %w", err)
	}

	n.logger.Info("notification recorded",
		zap.String("kind", string(kind)),
		zap.String("recipient", recipient),
		zap.String("relationship_id", relationshipID))
	n.bus.Emit(bus.Notifications)
	return rec, nil
}

// FeedFor returns the recipient's feed, newest first.
func (n *Notifier) FeedFor(recipient string) ([]domain.NotificationRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	feed, err := cache.Load[[]domain.NotificationRecord](n.cache, cache.NotificationsNS)
	if err != nil {
		return nil, fmt.Errorf("load notification feed: %w", err)
	}
	var out []domain.NotificationRecord
	for _, rec := range feed {
		if rec.Recipient == recipient {
			out = append(out, rec)
		}
	}
	return out, nil
}

// MarkRead marks a single record read.
func (n *Notifier) MarkRead(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	feed, err := cache.Load[[]domain.NotificationRecord](n.cache, cache.NotificationsNS)
	if err != nil {
		return fmt.Errorf("load notification feed: %w", err)
	}
	changed := false
	for i := range feed {
		if feed[i].ID == id && !feed[i].IsRead {
			feed[i].IsRead = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := cache.Store(n.cache, cache.NotificationsNS, feed); err != nil {
		return fmt.Errorf("store notification feed: %w", err)
	}
	n.bus.Emit(bus.Notifications)
	return nil
}

// MarkRelatedRead marks every record for the recipient that references the
// relationship as read, without adding a new record. Used when a transition
// (reject, cancel) should clear stale request notifications silently.
func (n *Notifier) MarkRelatedRead(relationshipID, recipient string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	feed, err := cache.Load[[]domain.NotificationRecord](n.cache, cache.NotificationsNS)
	if err != nil {
		return fmt.Errorf("load notification feed: %w", err)
	}
	changed := false
	for i := range feed {
		if feed[i].RelatedRelationshipID == relationshipID && feed[i].Recipient == recipient && !feed[i].IsRead {
			feed[i].IsRead = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := cache.Store(n.cache, cache.NotificationsNS, feed); err != nil {
		return fmt.Errorf("store notification feed: %w", err)
	}
	n.bus.Emit(bus.Notifications)
	return nil
}

// truncatePerRecipient evicts the recipient's oldest records beyond FeedCap.
// The feed is newest-first, so eviction drops from the tail.
func truncatePerRecipient(feed []domain.NotificationRecord, recipient string) []domain.NotificationRecord {
	count := 0
	out := feed[:0]
	for _, rec := range feed {
		if rec.Recipient == recipient {
			count++
			if count > FeedCap {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}
