// Package kvstore defines the key-value store the dedup cache runs on, plus
// an sqlite-backed implementation.
//
// The contract mirrors a size-limited hosted KV product: string keys, opaque
// byte values with a small sidecar metadata blob, TTL as a lower bound on
// visible lifetime, and listing that returns bounded pages with a
// continuation cursor.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// MaxPageSize is the hard cap on keys returned by one List call.
const MaxPageSize = 1000

var ErrNotFound = errors.New("kvstore: key not found")

// Entry is a stored value with its sidecar metadata.
type Entry struct {
	Key       string
	Value     []byte
	Metadata  []byte
	CreatedAt time.Time
	// ExpiresAt is zero for entries without a TTL.
	ExpiresAt time.Time
}

// KeyInfo is one key in a listing page. Metadata rides along so listings can
// be inspected without a Get per key.
type KeyInfo struct {
	Name     string
	Metadata []byte
}

// Page is one bounded slice of a listing. When Complete is false the Cursor
// resumes the listing where this page ended.
type Page struct {
	Keys     []KeyInfo
	Cursor   string
	Complete bool
}

// Store is the backend contract. Implementations must treat ttl <= 0 as
// "no expiry" and guarantee that expired entries are never visible to Get
// or List (physical deletion may lag).
type Store interface {
	Put(ctx context.Context, key string, value, metadata []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) (Entry, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix, cursor string) (Page, error)
	Close() error
}
