package connection

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

// Manager owns the relationship state machine per participant pair and is
// the sole authority for whether two parties may exchange messages. It
// reconciles the durable store with the local cache, preferring the durable
// row when both exist and falling back to cache-only records when the
// backend has no row for a pair.
type Manager struct {
	mu       sync.Mutex
	cache    *cache.DB
	durable  durable.Adapter
	bus      *bus.Bus
	notifier *notify.Notifier
	logger   *zap.Logger

	// owner is the profile's participant id; it only decides which persisted
	// bucket a record lands in, never the outcome of an operation.
	owner string
	now   func() time.Time
}

// View is a relationship normalized to one viewer's perspective.
type View struct {
	Relationship domain.Relationship
	State        domain.PerspectiveState
}

// NewManager creates a connection lifecycle manager.
func NewManager(db *cache.DB, d durable.Adapter, b *bus.Bus, n *notify.Notifier, logger *zap.Logger, owner string) *Manager {
	return &Manager{
		cache:    db,
		durable:  d,
		bus:      b,
		notifier: n,
		logger:   logger,
		owner:    owner,
		now:      time.Now,
	}
}

// Request sends a connection request from one participant to another.
// If the other side already has a pending request toward the requester, the
// two are collapsed into a single CONNECTED relationship instead of leaving
// two crossed pending records.
func (m *Manager) Request(ctx context.Context, from, to string) (domain.Relationship, error) {
	if from == "" || to == "" || from == to {
		return domain.Relationship{}, swap_errors.ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rel, found, err := m.lookupPair(ctx, from, to)
	if err != nil {
		return domain.Relationship{}, err
	}

	if found {
		switch {
		case rel.State == domain.StateConnected:
			return rel, swap_errors.ErrAlreadyConnected
		case rel.State == domain.StatePending && rel.RequesterID == from:
			return rel, swap_errors.ErrRequestPending
		case rel.State == domain.StatePending && rel.RequesterID == to:
			// Crossed requests: promote straight to connected.
			return m.promoteCrossed(ctx, rel, from)
		}
	}

	next := domain.NewRelationship(rel.ID, from, to, domain.StatePending, m.now())
	if found && !canTransition(rel.State, domain.StatePending) {
		return rel, swap_errors.ErrInvalidInput
	}
	if next.ID == "" {
		next.ID = uuid.New().String()
		next.CacheOnly = true
	} else {
		next.CacheOnly = rel.CacheOnly
	}

	stored, err := m.persist(ctx, next, found && !rel.CacheOnly)
	if err != nil {
		return rel, err
	}

	if _, err := m.notifier.Record(domain.NotifyConnection, to,
		fmt.Sprintf("%s wants to connect", from), stored.ID); err != nil {
		m.logger.Warn("notification record failed", zap.Error(err))
	}
	m.bus.Emit(bus.Connections)
	m.bus.Emit(bus.Conversations)
	m.logger.Info("connection requested",
		zap.String("from", from), zap.String("to", to), zap.String("relationship_id", stored.ID))
	return stored, nil
}

// Accept transitions a pending request to CONNECTED. Legal only for the
// participant who received the request. Accepting an already-connected
// relationship is an idempotent no-op.
func (m *Manager) Accept(ctx context.Context, relationshipID, by string) (domain.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := m.lookupID(ctx, relationshipID, by)
	if err != nil {
		return domain.Relationship{}, err
	}

	if rel.State == domain.StateConnected {
		return rel, nil
	}
	if rel.State != domain.StatePending {
		return rel, swap_errors.ErrInvalidInput
	}
	if by == rel.RequesterID || !rel.Involves(by) {
		return rel, swap_errors.ErrForbidden
	}

	next := rel
	next.State = domain.StateConnected
	next.UpdatedAt = m.now()

	stored, err := m.persist(ctx, next, !rel.CacheOnly)
	if err != nil {
		return rel, err
	}

	if _, err := m.notifier.Record(domain.NotifyConnection, rel.RequesterID,
		fmt.Sprintf("%s accepted your connection request", by), stored.ID); err != nil {
		m.logger.Warn("notification record failed", zap.Error(err))
	}
	if err := m.notifier.MarkRelatedRead(stored.ID, by); err != nil {
		m.logger.Warn("mark related read failed", zap.Error(err))
	}
	m.bus.Emit(bus.Connections)
	m.bus.Emit(bus.Conversations)
	m.logger.Info("connection accepted",
		zap.String("relationship_id", stored.ID), zap.String("by", by))
	return stored, nil
}

// Reject declines a pending request. The requester will observe REJECTED;
// the rejecting side observes NOT_CONNECTED. No notification is emitted for
// the rejecting party; its stale request notifications are marked read.
func (m *Manager) Reject(ctx context.Context, relationshipID, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := m.lookupID(ctx, relationshipID, by)
	if err != nil {
		return err
	}
	if rel.State != domain.StatePending {
		return swap_errors.ErrInvalidInput
	}
	if by == rel.RequesterID || !rel.Involves(by) {
		return swap_errors.ErrForbidden
	}

	next := rel
	next.State = domain.StateRejected
	next.UpdatedAt = m.now()

	if _, err := m.persist(ctx, next, !rel.CacheOnly); err != nil {
		return err
	}

	if err := m.notifier.MarkRelatedRead(rel.ID, by); err != nil {
		m.logger.Warn("mark related read failed", zap.Error(err))
	}
	m.bus.Emit(bus.Connections)
	m.logger.Info("connection rejected",
		zap.String("relationship_id", rel.ID), zap.String("by", by))
	return nil
}

// Cancel withdraws a pending request. Only the original requester may
// cancel; both perspectives return to NOT_CONNECTED and a future request
// remains possible.
func (m *Manager) Cancel(ctx context.Context, relationshipID, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := m.lookupID(ctx, relationshipID, by)
	if err != nil {
		return err
	}
	if rel.State != domain.StatePending {
		return swap_errors.ErrInvalidInput
	}
	if by != rel.RequesterID {
		return swap_errors.ErrNotRequester
	}

	next := rel
	next.State = domain.StateNotConnected
	next.UpdatedAt = m.now()

	if _, err := m.persist(ctx, next, !rel.CacheOnly); err != nil {
		return err
	}

	if err := m.notifier.MarkRelatedRead(rel.ID, rel.Other(by)); err != nil {
		m.logger.Warn("mark related read failed", zap.Error(err))
	}
	m.bus.Emit(bus.Connections)
	m.logger.Info("connection request cancelled",
		zap.String("relationship_id", rel.ID), zap.String("by", by))
	return nil
}

// StateFor returns the relationship state normalized to the viewer's
// perspective.
func (m *Manager) StateFor(ctx context.Context, relationshipID, viewer string) (domain.PerspectiveState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := m.lookupID(ctx, relationshipID, viewer)
	if err != nil {
		return domain.NotConnected, err
	}
	return rel.StateFor(viewer), nil
}

// Get returns a relationship by id.
func (m *Manager) Get(ctx context.Context, relationshipID, viewer string) (domain.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupID(ctx, relationshipID, viewer)
}

// IsConnected reports whether the relationship is in CONNECTED state. This
// is the messaging gate used by the conversation manager.
func (m *Manager) IsConnected(ctx context.Context, relationshipID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := m.lookupID(ctx, relationshipID, m.owner)
	if err != nil {
		return false, err
	}
	return rel.State == domain.StateConnected, nil
}

// ListFor returns every relationship involving the viewer, normalized to
// the viewer's perspective and ordered by request time.
func (m *Manager) ListFor(ctx context.Context, viewer string) ([]View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged, err := m.merged(ctx, viewer)
	if err != nil {
		return nil, err
	}

	var views []View
	for _, rel := range merged {
		if rel.Involves(viewer) {
			views = append(views, View{Relationship: rel, State: rel.StateFor(viewer)})
		}
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Relationship.RequestedAt.Before(views[j].Relationship.RequestedAt)
	})
	return views, nil
}

// Sync reconciles durable relationships into the local cache and surfaces
// newly discovered inbound requests as connection notifications.
func (m *Manager) Sync(ctx context.Context, viewer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	remote, err := m.durable.ListRelationshipsFor(ctx, viewer)
	if err != nil {
		return fmt.Errorf("%w: %v", swap_errors.ErrPersistence, err)
	}

	known, err := m.loadCached()
	if err != nil {
		return err
	}

	changed := false
	for _, rel := range remote {
		prev, seen := known[rel.Key()]
		if seen && !prev.UpdatedAt.Before(rel.UpdatedAt) {
			continue
		}
		known[rel.Key()] = rel
		changed = true
		if !seen && rel.State == domain.StatePending && rel.RequesterID != viewer {
			if _, err := m.notifier.Record(domain.NotifyConnection, viewer,
				fmt.Sprintf("%s wants to connect", rel.RequesterID), rel.ID); err != nil {
				m.logger.Warn("notification record failed", zap.Error(err))
			}
		}
	}

	if !changed {
		return nil
	}
	if err := m.saveCached(known); err != nil {
		return err
	}
	m.bus.Emit(bus.Connections)
	return nil
}

// promoteCrossed collapses two concurrent requests into one CONNECTED
// relationship and notifies the earlier requester.
func (m *Manager) promoteCrossed(ctx context.Context, rel domain.Relationship, from string) (domain.Relationship, error) {
	next := rel
	next.State = domain.StateConnected
	next.UpdatedAt = m.now()

	stored, err := m.persist(ctx, next, !rel.CacheOnly)
	if err != nil {
		return rel, err
	}

	if _, err := m.notifier.Record(domain.NotifyConnection, rel.RequesterID,
		fmt.Sprintf("%s accepted your connection request", from), stored.ID); err != nil {
		m.logger.Warn("notification record failed", zap.Error(err))
	}
	if err := m.notifier.MarkRelatedRead(stored.ID, from); err != nil {
		m.logger.Warn("mark related read failed", zap.Error(err))
	}
	m.bus.Emit(bus.Connections)
	m.bus.Emit(bus.Conversations)
	m.logger.Info("crossed requests collapsed to connected",
		zap.String("relationship_id", stored.ID))
	return stored, nil
}

// persist writes the relationship durably when possible, then rewrites the
// cache buckets. When the record was durably confirmed before and the
// durable write fails, nothing is cached and the failure is reported, so
// the relationship stays in its prior confirmed state. Cache-only records
// tolerate durable failure and stay cache-only.
func (m *Manager) persist(ctx context.Context, rel domain.Relationship, mustBeDurable bool) (domain.Relationship, error) {
	stored, err := m.durable.CreateOrUpdateRelationship(ctx, rel)
	switch {
	case err == nil:
		stored.CacheOnly = false
	case mustBeDurable:
		return rel, fmt.Errorf("%w: %v", swap_errors.ErrPersistence, err)
	default:
		m.logger.Warn("durable write failed, keeping relationship cache-only",
			zap.String("relationship_id", rel.ID), zap.Error(err))
		stored = rel
		stored.CacheOnly = true
	}

	known, err := m.loadCached()
	if err != nil {
		return stored, err
	}
	known[stored.Key()] = stored
	if err := m.saveCached(known); err != nil {
		return stored, err
	}
	return stored, nil
}

// lookupPair finds the relationship for an unordered pair, overlaying the
// durable row on the cached one when both exist. The newer record wins.
func (m *Manager) lookupPair(ctx context.Context, a, b string) (domain.Relationship, bool, error) {
	merged, err := m.merged(ctx, a)
	if err != nil {
		return domain.Relationship{}, false, err
	}
	rel, ok := merged[domain.PairKey(a, b)]
	return rel, ok, nil
}

// lookupID finds a relationship by id, consulting the durable store through
// the viewer when the cache has no copy.
func (m *Manager) lookupID(ctx context.Context, id, viewer string) (domain.Relationship, error) {
	if id == "" {
		return domain.Relationship{}, swap_errors.ErrInvalidInput
	}
	merged, err := m.merged(ctx, viewer)
	if err != nil {
		return domain.Relationship{}, err
	}
	for _, rel := range merged {
		if rel.ID == id {
			return rel, nil
		}
	}
	return domain.Relationship{}, swap_errors.ErrNotFound
}

// merged returns cached relationships overlaid with the durable rows for a
// participant. Durable unavailability degrades to cache-only silently: the
// cache is the specified fallback, not an error path.
func (m *Manager) merged(ctx context.Context, participant string) (map[string]domain.Relationship, error) {
	known, err := m.loadCached()
	if err != nil {
		return nil, err
	}
	if participant == "" {
		return known, nil
	}

	remote, err := m.durable.ListRelationshipsFor(ctx, participant)
	if err != nil {
		m.logger.Warn("durable list failed, serving cache only", zap.Error(err))
		return known, nil
	}
	for _, rel := range remote {
		if prev, ok := known[rel.Key()]; ok && prev.UpdatedAt.After(rel.UpdatedAt) {
			continue
		}
		known[rel.Key()] = rel
	}
	return known, nil
}

// loadCached merges the three persisted relationship buckets into one map
// keyed by unordered pair. If a pair somehow appears in more than one
// bucket, the most recently updated record wins.
func (m *Manager) loadCached() (map[string]domain.Relationship, error) {
	known := make(map[string]domain.Relationship)
	for _, ns := range []string{cache.RelationshipsSent, cache.RelationshipsReceived, cache.RelationshipsEstablished} {
		recs, err := cache.Load[[]domain.Relationship](m.cache, ns)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", ns, err)
		}
		for _, rel := range recs {
			if prev, ok := known[rel.Key()]; ok && prev.UpdatedAt.After(rel.UpdatedAt) {
				continue
			}
			known[rel.Key()] = rel
		}
	}
	return known, nil
}

// saveCached rewrites all three buckets wholesale from the canonical map.
func (m *Manager) saveCached(known map[string]domain.Relationship) error {
	var sent, received, established []domain.Relationship
	for _, rel := range known {
		switch {
		case rel.State == domain.StateConnected:
			established = append(established, rel)
		case rel.RequesterID == m.owner || m.owner == "":
			sent = append(sent, rel)
		default:
			received = append(received, rel)
		}
	}
	for _, b := range []struct {
		ns   string
		recs []domain.Relationship
	}{
		{cache.RelationshipsSent, sent},
		{cache.RelationshipsReceived, received},
		{cache.RelationshipsEstablished, established},
	} {
		sort.Slice(b.recs, func(i, j int) bool { return b.recs[i].RequestedAt.Before(b.recs[j].RequestedAt) })
		if err := cache.Store(m.cache, b.ns, b.recs); err != nil {
			return fmt.Errorf("store %s: %w", b.ns, err)
		}
	}
	return nil
}
