package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ─── Boundary Interfaces ────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the ledger engine depends on them.

// KVStore is the local device store: a synchronous cache for immediate reads.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RemoteRecord is a per-user document in the shared remote store.
// Fields are kept raw so a merge only touches fields the record carries.
// Version increases on every write to the record and orders deliveries.
type RemoteRecord struct {
	UserID    string                     `json:"user_id"`
	Fields    map[string]json.RawMessage `json:"fields"`
	Version   int64                      `json:"version"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// RemoteRecords is the durable, realtime-synced store of per-user records.
type RemoteRecords interface {
	// Update merges partial fields into the user's record, creating it if
	// needed, and returns the record's new version.
	Update(ctx context.Context, userID string, fields map[string]any) (int64, error)

	// Get returns the user's record or ErrRecordNotFound.
	Get(ctx context.Context, userID string) (RemoteRecord, error)

	// Subscribe delivers the full record every time it changes, until the
	// subscription is closed or ctx ends.
	Subscribe(ctx context.Context, userID string, onChange func(RemoteRecord)) (Subscription, error)

	// Delete removes the user's record.
	Delete(ctx context.Context, userID string) error
}

// RecordLister enumerates every remote record (leaderboards).
type RecordLister interface {
	List(ctx context.Context) ([]RemoteRecord, error)
}

// Subscription is a handle to a live remote subscription.
type Subscription interface {
	Close() error
}

// Notifier presents a transient message to the user. Fire-and-forget.
type Notifier interface {
	Notify(userID, title, message string, kind NotificationKind)
}

// Clock is the local-calendar date source (device timezone, not UTC).
type Clock interface {
	Today() string // YYYY-MM-DD
	Month() string // YYYY-MM
}

// AuditLog records point movements.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}
