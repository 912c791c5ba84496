package cache

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Logical namespaces. Each holds one serializable collection, loaded on
// demand and rewritten wholesale on every mutation.
const (
	RelationshipsSent        = "relationships-sent"
	RelationshipsReceived    = "relationships-received"
	RelationshipsEstablished = "relationships-established"
	ConversationsNS          = "conversations"
	NotificationsNS          = "notifications"
)

// Load decodes the collection stored under a namespace into T. A missing or
// corrupt payload yields the zero value of T and no error: the cache is a
// fallback, so unreadable entries must never fail the caller.
func Load[T any](db *DB, namespace string) (T, error) {
	var out T
	var payload string
	err := db.QueryRow(`SELECT payload FROM namespaces WHERE name = ?`, namespace).Scan(&payload)
	if err == sql.ErrNoRows {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		// Corrupt entry: treat as empty.
		var zero T
		return zero, nil
	}
	return out, nil
}

// Store serializes v and rewrites the namespace wholesale.
func Store[T any](db *DB, namespace string, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO namespaces (name, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		namespace, string(payload), now)
	return err
}

// Remove deletes a namespace entirely. Removing an absent namespace is a no-op.
func (db *DB) Remove(namespace string) error {
	_, err := db.Exec(`DELETE FROM namespaces WHERE name = ?`, namespace)
	return err
}
