package cache

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

type sample struct {
	Name  string
	Count int
}

func TestStoreAndLoad(t *testing.T) {
	db := testDB(t)

	in := []sample{{Name: "a", Count: 1}, {Name: "b", Count: 2}}
	if err := Store(db, ConversationsNS, in); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	out, err := Load[[]sample](db, ConversationsNS)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(out) != 2 || out[0].Name != "a" || out[1].Count != 2 {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
}

func TestStoreRewritesWholesale(t *testing.T) {
	db := testDB(t)

	if err := Store(db, RelationshipsSent, []sample{{Name: "old"}}); err != nil {
		t.Fatal(err)
	}
	if err := Store(db, RelationshipsSent, []sample{{Name: "new"}}); err != nil {
		t.Fatal(err)
	}

	out, err := Load[[]sample](db, RelationshipsSent)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "new" {
		t.Errorf("Load() = %+v, want single 'new' entry", out)
	}
}

func TestLoadMissingNamespace(t *testing.T) {
	db := testDB(t)

	out, err := Load[[]sample](db, "never-written")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for absent namespace", err)
	}
	if out != nil {
		t.Errorf("Load() = %+v, want nil", out)
	}
}

func TestLoadCorruptEntryTreatedAsEmpty(t *testing.T) {
	db := testDB(t)

	if _, err := db.Exec(`INSERT INTO namespaces (name, payload, updated_at) VALUES (?, ?, 0)`,
		NotificationsNS, "{not valid json"); err != nil {
		t.Fatal(err)
	}

	out, err := Load[[]sample](db, NotificationsNS)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for corrupt entry", err)
	}
	if out != nil {
		t.Errorf("Load() = %+v, want nil (corrupt treated as empty)", out)
	}
}

func TestRemove(t *testing.T) {
	db := testDB(t)

	if err := Store(db, RelationshipsReceived, []sample{{Name: "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.Remove(RelationshipsReceived); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	out, err := Load[[]sample](db, RelationshipsReceived)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Errorf("Load() after Remove = %+v, want nil", out)
	}

	// Removing again is a no-op.
	if err := db.Remove(RelationshipsReceived); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}
