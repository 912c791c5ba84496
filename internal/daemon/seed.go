package daemon

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"skillswap/internal/connection"
	"skillswap/internal/conversation"
	swap_errors "skillswap/pkg/errors"
)

// demo participants offering skills to trade; owner is the local profile.
var seedPeers = []struct {
	id    string
	offer string
}{
	{"ines-baker", "sourdough basics"},
	{"tomas-guitar", "fingerstyle guitar"},
	{"mei-lang", "mandarin conversation"},
}

// Seed populates the cache with demo relationships on first run of a
// memory-driver profile. A second run is a no-op: the relationships already
// exist and the gates report that.
func Seed(ctx context.Context, owner string, conns *connection.Manager, convs *conversation.Manager, logger *zap.Logger) error {
	existing, err := conns.ListFor(ctx, owner)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for i, peer := range seedPeers {
		rel, err := conns.Request(ctx, owner, peer.id)
		if err != nil {
			if errors.Is(err, swap_errors.ErrRequestPending) || errors.Is(err, swap_errors.ErrAlreadyConnected) {
				continue
			}
			return err
		}
		// First peer stays a pending outbound request; the rest accept and
		// say hello so the conversation list is not empty.
		if i == 0 {
			continue
		}
		if _, err := conns.Accept(ctx, rel.ID, peer.id); err != nil {
			return err
		}
		if _, err := convs.Send(ctx, rel.ID, peer.id, "hey! still up for trading "+peer.offer+"?"); err != nil {
			return err
		}
	}

	logger.Info("seeded demo relationships", zap.Int("peers", len(seedPeers)))
	return nil
}
