package storage

import (
	"context"
	"time"
)

// LinkStore is the key-value namespace holding short codes and the auth secret.
// Operations are atomic per key; there are no cross-key transactions.
type LinkStore interface {
	// Get returns nil, nil when the code is absent.
	Get(ctx context.Context, code string) (*ShortLink, error)
	Put(ctx context.Context, link *ShortLink) error
	// PutIfAbsent reports whether the link was stored.
	PutIfAbsent(ctx context.Context, link *ShortLink) (bool, error)
	// Delete succeeds for absent codes.
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// ViewLedger is the relational view counter keyed by code.
type ViewLedger interface {
	Migrate(ctx context.Context) error
	// Increment inserts {code, 1, at} or bumps count in one statement. updated_at
	// never moves backwards, and is stored in UTC.
	Increment(ctx context.Context, code string, at time.Time) error
	// Get returns nil, nil when no view has been recorded.
	Get(ctx context.Context, code string) (*ViewRecord, error)
	TotalViews(ctx context.Context) (int64, error)
	Delete(ctx context.Context, code string) error
	Close() error
}

// SecretKey is the LinkStore key holding the shared auth secret.
const SecretKey = "auth"
