package notify

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/bus"
	"skillswap/internal/cache"
	"skillswap/internal/domain"
)

func testNotifier(t *testing.T) (*Notifier, *bus.Bus) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := cache.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	b := bus.New()
	return New(db, b, zap.NewNop()), b
}

func TestRecordAndFeed(t *testing.T) {
	n, b := testNotifier(t)
	ch, unsub := b.Subscribe(bus.Notifications, 10)
	defer unsub()

	rec, err := n.Record(domain.NotifyConnection, "bob", "alice wants to connect", "rel-1")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.IsRead {
		t.Error("new record should be unread")
	}

	feed, err := n.FeedFor("bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 {
		t.Fatalf("got %d records, want 1", len(feed))
	}
	if feed[0].Kind != domain.NotifyConnection || feed[0].IsRead {
		t.Errorf("feed[0] = %+v, want unread connection record", feed[0])
	}

	// Another participant's feed stays empty.
	other, err := n.FeedFor("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("alice feed has %d records, want 0", len(other))
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notifications event")
	}
}

func TestRecordMarksRelatedRead(t *testing.T) {
	n, _ := testNotifier(t)

	if _, err := n.Record(domain.NotifyConnection, "bob", "alice wants to connect", "rel-1"); err != nil {
		t.Fatal(err)
	}
	// Accepting emits a new connection record for the same relationship; the
	// original request notification must flip to read.
	if _, err := n.Record(domain.NotifyConnection, "alice", "bob accepted your request", "rel-1"); err != nil {
		t.Fatal(err)
	}

	feed, err := n.FeedFor("bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 1 {
		t.Fatalf("got %d records, want 1", len(feed))
	}
	if !feed[0].IsRead {
		t.Error("original request notification should be marked read")
	}
}

func TestFeedNewestFirstAndBounded(t *testing.T) {
	n, _ := testNotifier(t)

	for i := 0; i < FeedCap+10; i++ {
		relID := fmt.Sprintf("rel-%d", i)
		if _, err := n.Record(domain.NotifyMessage, "bob", "new message", relID); err != nil {
			t.Fatal(err)
		}
	}

	feed, err := n.FeedFor("bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != FeedCap {
		t.Fatalf("feed length = %d, want cap %d", len(feed), FeedCap)
	}
	// Newest first: the last recorded relationship leads.
	if feed[0].RelatedRelationshipID != fmt.Sprintf("rel-%d", FeedCap+9) {
		t.Errorf("feed[0] related = %q, want newest", feed[0].RelatedRelationshipID)
	}
	// Oldest records evicted.
	for _, rec := range feed {
		if rec.RelatedRelationshipID == "rel-0" {
			t.Error("oldest record should have been evicted")
		}
	}
}

func TestEvictionScopedPerRecipient(t *testing.T) {
	n, _ := testNotifier(t)

	if _, err := n.Record(domain.NotifyMeeting, "carol", "meeting scheduled", "rel-c"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < FeedCap+5; i++ {
		if _, err := n.Record(domain.NotifyMessage, "bob", "new message", fmt.Sprintf("rel-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	carol, err := n.FeedFor("carol")
	if err != nil {
		t.Fatal(err)
	}
	if len(carol) != 1 {
		t.Errorf("carol feed = %d records, want 1 (unaffected by bob's eviction)", len(carol))
	}
}

func TestMarkRead(t *testing.T) {
	n, _ := testNotifier(t)

	rec, err := n.Record(domain.NotifyConnection, "bob", "alice wants to connect", "rel-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := n.MarkRead(rec.ID); err != nil {
		t.Fatal(err)
	}

	feed, _ := n.FeedFor("bob")
	if !feed[0].IsRead {
		t.Error("record should be read after MarkRead")
	}

	// Unknown id is a no-op.
	if err := n.MarkRead("missing"); err != nil {
		t.Errorf("MarkRead(missing) error = %v", err)
	}
}

func TestMarkRelatedRead(t *testing.T) {
	n, _ := testNotifier(t)

	if _, err := n.Record(domain.NotifyConnection, "bob", "alice wants to connect", "rel-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := n.Record(domain.NotifyMessage, "bob", "unrelated", "rel-2"); err != nil {
		t.Fatal(err)
	}

	if err := n.MarkRelatedRead("rel-1", "bob"); err != nil {
		t.Fatal(err)
	}

	feed, _ := n.FeedFor("bob")
	for _, rec := range feed {
		switch rec.RelatedRelationshipID {
		case "rel-1":
			if !rec.IsRead {
				t.Error("rel-1 record should be read")
			}
		case "rel-2":
			if rec.IsRead {
				t.Error("rel-2 record should stay unread")
			}
		}
	}
}
