package conversation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillswap/internal/bus"
	"skillswap/internal/cache"
	"skillswap/internal/domain"
	"skillswap/internal/durable"
	"skillswap/internal/notify"
	swap_errors "skillswap/pkg/errors"
)

// Reference timings for the simulated local delivery progression when no
// remote read-receipt channel exists.
const (
	deliveredAfter = 500 * time.Millisecond
	readAfter      = 1000 * time.Millisecond

	// dupTolerance bounds how far apart timestamps may be for a cache-origin
	// and durable-origin message to count as the same logical send.
	dupTolerance = 2 * time.Second
)

// ConnectionGate is the slice of the connection lifecycle manager the
// conversation manager needs: messaging is gated strictly on CONNECTED.
type ConnectionGate interface {
	IsConnected(ctx context.Context, relationshipID string) (bool, error)
	Get(ctx context.Context, relationshipID, viewer string) (domain.Relationship, error)
}

// threadState is the cached per-relationship conversation: message list,
// UI-local metadata, and tombstones for locally deleted durable messages so
// merges do not resurrect them.
type threadState struct {
	Messages       []domain.Message        `json:"messages"`
	Meta           domain.ConversationMeta `json:"meta"`
	Tombstones     map[string]bool         `json:"tombstones,omitempty"`
	LastFailedBody string                  `json:"last_failed_body,omitempty"`
}

// Manager owns the ordered message list per relationship. It performs
// optimistic insertion, reconciliation against the durable store, and
// de-duplication when merging local and remote message sets. It is the only
// mutator of message state.
type Manager struct {
	mu       sync.Mutex
	cache    *cache.DB
	durable  durable.Adapter
	gate     ConnectionGate
	bus      *bus.Bus
	notifier *notify.Notifier
	sched    Scheduler
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a conversation manager.
func NewManager(db *cache.DB, d durable.Adapter, gate ConnectionGate, b *bus.Bus, n *notify.Notifier, sched Scheduler, logger *zap.Logger) *Manager {
	if sched == nil {
		sched = TimerScheduler{}
	}
	return &Manager{
		cache:    db,
		durable:  d,
		gate:     gate,
		bus:      b,
		notifier: n,
		sched:    sched,
		logger:   logger,
		now:      time.Now,
	}
}

// Send appends a message to a connected relationship. The optimistic entry
// is cached and announced synchronously so the sender's view updates
// instantly; durable confirmation, entry replacement, and the delivery
// progression run through the scheduler. Returns the optimistic message.
func (m *Manager) Send(ctx context.Context, relationshipID, senderID, body string) (domain.Message, error) {
	if body == "" {
		return domain.Message{}, swap_errors.ErrInvalidInput
	}
	connected, err := m.gate.IsConnected(ctx, relationshipID)
	if err != nil {
		return domain.Message{}, err
	}
	if !connected {
		return domain.Message{}, swap_errors.ErrNotConnected
	}

	msg := domain.Message{
		ID:             "local-" + uuid.New().String(),
		RelationshipID: relationshipID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      m.now(),
		Delivery:       domain.DeliverySending,
		Optimistic:     true,
	}

	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		return domain.Message{}, err
	}
	th := threads.get(relationshipID)
	th.Messages = append(th.Messages, msg)
	th.LastFailedBody = ""
	if err := m.saveThreads(threads); err != nil {
		m.mu.Unlock()
		return domain.Message{}, err
	}
	m.mu.Unlock()

	m.bus.Emit(bus.Conversations)

	m.sched.AfterFunc(0, func() { m.confirm(relationshipID, msg.ID, senderID, body) })
	return msg, nil
}

// confirm runs the asynchronous phase of a send: durable append, replacement
// of the optimistic entry with the authoritative row, and scheduling of the
// simulated DELIVERED/READ progression. On durable failure the optimistic
// entry is rolled back and the composed body kept for retry.
func (m *Manager) confirm(relationshipID, tempID, senderID, body string) {
	ctx := context.Background()

	durableMsg, err := m.durable.AppendMessage(ctx, relationshipID, senderID, body)
	if err != nil {
		m.logger.Error("durable append failed, rolling back optimistic message",
			zap.String("relationship_id", relationshipID),
			zap.String("temp_id", tempID),
			zap.Error(err))
		m.rollback(relationshipID, tempID, body)
		return
	}

	remote, err := m.durable.ListMessages(ctx, relationshipID)
	if err != nil {
		// The append itself succeeded; reconcile against the single row.
		m.logger.Warn("authoritative re-fetch failed", zap.Error(err))
		remote = []domain.Message{durableMsg}
	}

	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("load threads failed", zap.Error(err))
		return
	}
	th := threads.get(relationshipID)
	th.Messages = mergeMessages(remote, th.Messages, th.Tombstones, tempID)
	for i := range th.Messages {
		if th.Messages[i].ID == durableMsg.ID && domain.CanAdvance(th.Messages[i].Delivery, domain.DeliverySent) {
			th.Messages[i].Delivery = domain.DeliverySent
		}
	}
	err = m.saveThreads(threads)
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("save threads failed", zap.Error(err))
		return
	}

	m.bus.Emit(bus.Conversations)

	m.sched.AfterFunc(deliveredAfter, func() {
		m.advanceDelivery(relationshipID, durableMsg.ID, domain.DeliveryDelivered)
	})
	m.sched.AfterFunc(readAfter, func() {
		m.advanceDelivery(relationshipID, durableMsg.ID, domain.DeliveryRead)
	})
}

// rollback removes the optimistic entry after a durable failure. The failed
// body stays queryable so the compose input can be repopulated for retry.
func (m *Manager) rollback(relationshipID, tempID, body string) {
	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("load threads failed during rollback", zap.Error(err))
		return
	}
	th := threads.get(relationshipID)
	kept := th.Messages[:0]
	for _, msg := range th.Messages {
		if msg.ID != tempID {
			kept = append(kept, msg)
		}
	}
	th.Messages = kept
	th.LastFailedBody = body
	err = m.saveThreads(threads)
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("save threads failed during rollback", zap.Error(err))
		return
	}
	m.bus.Emit(bus.Conversations)
}

// advanceDelivery moves a self-authored message forward in its delivery
// progression. Regressions are ignored: the progression is monotonic per
// message id.
func (m *Manager) advanceDelivery(relationshipID, messageID string, to domain.DeliveryState) {
	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("load threads failed", zap.Error(err))
		return
	}
	th := threads.get(relationshipID)
	changed := false
	for i := range th.Messages {
		if th.Messages[i].ID == messageID && domain.CanAdvance(th.Messages[i].Delivery, to) {
			th.Messages[i].Delivery = to
			changed = true
		}
	}
	if changed {
		err = m.saveThreads(threads)
	}
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("save threads failed", zap.Error(err))
		return
	}
	if changed {
		m.bus.Emit(bus.Conversations)
	}
}

// List returns the merged, de-duplicated message list for a relationship,
// ascending by creation time. Durable and cache sources are combined; where
// both describe the same logical send the durable version wins.
func (m *Manager) List(ctx context.Context, relationshipID string) ([]domain.Message, error) {
	remote, err := m.durable.ListMessages(ctx, relationshipID)
	if err != nil {
		m.logger.Warn("durable list failed, serving cache only",
			zap.String("relationship_id", relationshipID), zap.Error(err))
		remote = nil
	}

	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	th := threads.get(relationshipID)
	merged := mergeMessages(remote, th.Messages, th.Tombstones, "")
	m.mu.Unlock()

	return merged, nil
}

// Refresh pulls the authoritative message list, merges it into the cache,
// and bumps the unread count for newly seen inbound messages. This is the
// pull counterpart of push-on-write.
func (m *Manager) Refresh(ctx context.Context, relationshipID, viewer string) error {
	remote, err := m.durable.ListMessages(ctx, relationshipID)
	if err != nil {
		return fmt.Errorf("%w: %v", swap_errors.ErrPersistence, err)
	}

	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	th := threads.get(relationshipID)

	seen := make(map[string]bool, len(th.Messages))
	for _, msg := range th.Messages {
		seen[msg.ID] = true
	}

	newInbound := 0
	for i := range remote {
		if remote[i].SenderID != viewer {
			remote[i].Delivery = domain.DeliveryReceived
			if !seen[remote[i].ID] && !th.Tombstones[remote[i].ID] {
				newInbound++
			}
		}
	}

	th.Messages = mergeMessages(remote, th.Messages, th.Tombstones, "")
	th.Meta.UnreadCount += newInbound
	err = m.saveThreads(threads)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if newInbound > 0 {
		if _, err := m.notifier.Record(domain.NotifyMessage, viewer,
			fmt.Sprintf("%d new message(s)", newInbound), relationshipID); err != nil {
			m.logger.Warn("notification record failed", zap.Error(err))
		}
	}
	m.bus.Emit(bus.Conversations)
	return nil
}

// Star flags a message. No gating.
func (m *Manager) Star(messageID string) error { return m.setStar(messageID, true) }

// Unstar clears a message flag. No gating.
func (m *Manager) Unstar(messageID string) error { return m.setStar(messageID, false) }

func (m *Manager) setStar(messageID string, starred bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	threads, err := m.loadThreads()
	if err != nil {
		return err
	}
	for _, th := range threads.Threads {
		for i := range th.Messages {
			if th.Messages[i].ID == messageID {
				th.Messages[i].Starred = starred
				if err := m.saveThreads(threads); err != nil {
					return err
				}
				m.bus.Emit(bus.Conversations)
				return nil
			}
		}
	}
	return swap_errors.ErrNotFound
}

// Delete removes a message. Only its sender may delete it; durable-origin
// messages get a tombstone so future merges do not resurrect them.
func (m *Manager) Delete(messageID, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	threads, err := m.loadThreads()
	if err != nil {
		return err
	}
	for _, th := range threads.Threads {
		for i, msg := range th.Messages {
			if msg.ID != messageID {
				continue
			}
			if msg.SenderID != by {
				return swap_errors.ErrForbidden
			}
			th.Messages = append(th.Messages[:i], th.Messages[i+1:]...)
			if !msg.Optimistic {
				if th.Tombstones == nil {
					th.Tombstones = make(map[string]bool)
				}
				th.Tombstones[msg.ID] = true
			}
			if err := m.saveThreads(threads); err != nil {
				return err
			}
			m.bus.Emit(bus.Conversations)
			return nil
		}
	}
	return swap_errors.ErrNotFound
}

// Meta returns the UI-local conversation metadata for a relationship.
func (m *Manager) Meta(relationshipID string) (domain.ConversationMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	threads, err := m.loadThreads()
	if err != nil {
		return domain.ConversationMeta{}, err
	}
	return threads.get(relationshipID).Meta, nil
}

// LastFailedBody returns the body of the most recent failed send for a
// relationship, or "" when the last send succeeded.
func (m *Manager) LastFailedBody(relationshipID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	threads, err := m.loadThreads()
	if err != nil {
		return "", err
	}
	return threads.get(relationshipID).LastFailedBody, nil
}

// SetPinned updates the pinned flag.
func (m *Manager) SetPinned(relationshipID string, v bool) error {
	return m.updateMeta(relationshipID, func(meta *domain.ConversationMeta) { meta.Pinned = v })
}

// SetMuted updates the muted flag.
func (m *Manager) SetMuted(relationshipID string, v bool) error {
	return m.updateMeta(relationshipID, func(meta *domain.ConversationMeta) { meta.Muted = v })
}

// SetArchived updates the archived flag.
func (m *Manager) SetArchived(relationshipID string, v bool) error {
	return m.updateMeta(relationshipID, func(meta *domain.ConversationMeta) { meta.Archived = v })
}

// SetTyping updates the typing indicator.
func (m *Manager) SetTyping(relationshipID string, v bool) error {
	return m.updateMeta(relationshipID, func(meta *domain.ConversationMeta) { meta.Typing = v })
}

// MarkRead resets the unread counter.
func (m *Manager) MarkRead(relationshipID string) error {
	return m.updateMeta(relationshipID, func(meta *domain.ConversationMeta) { meta.UnreadCount = 0 })
}

func (m *Manager) updateMeta(relationshipID string, mutate func(*domain.ConversationMeta)) error {
	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	th := threads.get(relationshipID)
	mutate(&th.Meta)
	err = m.saveThreads(threads)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.bus.Emit(bus.Conversations)
	return nil
}

// ScheduleMeeting books a skill-exchange session on a connected
// relationship and notifies the other participant.
func (m *Manager) ScheduleMeeting(ctx context.Context, relationshipID, by string, at time.Time, note string) (domain.Meeting, error) {
	rel, err := m.gate.Get(ctx, relationshipID, by)
	if err != nil {
		return domain.Meeting{}, err
	}
	if rel.State != domain.StateConnected {
		return domain.Meeting{}, swap_errors.ErrNotConnected
	}
	if !rel.Involves(by) {
		return domain.Meeting{}, swap_errors.ErrForbidden
	}

	meeting := domain.Meeting{
		ID:          uuid.New().String(),
		ScheduledBy: by,
		At:          at,
		Note:        note,
	}

	m.mu.Lock()
	threads, err := m.loadThreads()
	if err != nil {
		m.mu.Unlock()
		return domain.Meeting{}, err
	}
	th := threads.get(relationshipID)
	th.Meta.Meetings = append(th.Meta.Meetings, meeting)
	err = m.saveThreads(threads)
	m.mu.Unlock()
	if err != nil {
		return domain.Meeting{}, err
	}

	if _, err := m.notifier.Record(domain.NotifyMeeting, rel.Other(by),
		fmt.Sprintf("%s scheduled a meeting", by), relationshipID); err != nil {
		m.logger.Warn("notification record failed", zap.Error(err))
	}
	m.bus.Emit(bus.Conversations)
	return meeting, nil
}

// threadsDoc is the wholesale-rewritten cache payload for the conversations
// namespace.
type threadsDoc struct {
	Threads map[string]*threadState `json:"threads"`
}

func (d *threadsDoc) get(relationshipID string) *threadState {
	th, ok := d.Threads[relationshipID]
	if !ok {
		th = &threadState{}
		d.Threads[relationshipID] = th
	}
	return th
}

func (m *Manager) loadThreads() (*threadsDoc, error) {
	doc, err := cache.Load[threadsDoc](m.cache, cache.ConversationsNS)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	if doc.Threads == nil {
		doc.Threads = make(map[string]*threadState)
	}
	return &doc, nil
}

func (m *Manager) saveThreads(doc *threadsDoc) error {
	if err := cache.Store(m.cache, cache.ConversationsNS, doc); err != nil {
		return fmt.Errorf("store conversations: %w", err)
	}
	return nil
}

// mergeMessages combines the durable-origin list with cache-origin entries.
// De-duplication is by id first; a cache entry that matches a durable entry
// as the same logical send is dropped in favor of the durable row (carrying
// over local star and further-progressed delivery state). replacedTempID,
// when non-empty, names an optimistic entry that must not survive the merge
// even if its timestamp drifted outside the tolerance.
func mergeMessages(remote []domain.Message, local []domain.Message, tombstones map[string]bool, replacedTempID string) []domain.Message {
	out := make([]domain.Message, 0, len(remote)+len(local))
	byID := make(map[string]int, len(remote))
	for _, msg := range remote {
		if tombstones[msg.ID] {
			continue
		}
		if msg.Delivery == "" {
			msg.Delivery = domain.DeliverySent
		}
		byID[msg.ID] = len(out)
		out = append(out, msg)
	}

	for _, msg := range local {
		if tombstones[msg.ID] {
			continue
		}
		if msg.ID == replacedTempID {
			continue
		}
		if i, ok := byID[msg.ID]; ok {
			// Same durable row already cached: keep local-only fields and the
			// further-progressed delivery state.
			if msg.Starred {
				out[i].Starred = true
			}
			if domain.CanAdvance(out[i].Delivery, msg.Delivery) || msg.Delivery == domain.DeliveryReceived {
				out[i].Delivery = msg.Delivery
			}
			continue
		}
		if j := fuzzyMatch(out, msg); j >= 0 {
			// Same logical send under a different (temporary) id: the durable
			// version wins outright, local flags carry over.
			if msg.Starred {
				out[j].Starred = true
			}
			continue
		}
		out = append(out, msg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func fuzzyMatch(msgs []domain.Message, candidate domain.Message) int {
	for i, msg := range msgs {
		if domain.SameLogicalSend(msg, candidate, dupTolerance) {
			return i
		}
	}
	return -1
}
