// Package dedup remembers which items have already triggered a notification.
//
// It is a namespaced view over a kvstore.Store: every entry lives under a
// configured prefix and carries a TTL, so deduplication is bounded in time
// rather than permanent. An item whose entry has expired is eligible for
// notification again; that trade-off is deliberate.
package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hnherald/internal/hn"
	"hnherald/internal/kvstore"
)

const (
	// MetadataLimit is the maximum encoded metadata size the backend
	// accepts per key.
	MetadataLimit = 1024

	// DefaultTTL bounds how long an entry suppresses re-notification.
	DefaultTTL = 3600 * time.Second

	// ttlMarkerSuffix names the bootstrap marker key under the prefix.
	ttlMarkerSuffix = "TTL"

	// maxListPages caps cursor-following as a second guard against a
	// backend that never reports completion.
	maxListPages = 100
)

var (
	ErrMetadataTooLarge = errors.New("dedup: metadata exceeds size limit")
	ErrNotFound         = kvstore.ErrNotFound
)

type Config struct {
	Prefix string        `json:"prefix"`
	TTL    time.Duration `json:"-"`
}

// Entry is the persisted record for one cached item.
type Entry struct {
	UUID      string    `json:"uuid"`
	Item      hn.Item   `json:"item"`
	CreatedAt time.Time `json:"created_at"`
}

// Metadata is the sidecar blob attached to a cache key. The enrichment
// fields are placeholders until a summarizer is wired in.
type Metadata struct {
	UUID       string `json:"uuid"`
	LLMSummary string `json:"llm_summary,omitempty"`
	LLMScore   string `json:"llm_score,omitempty"`
}

type Cache struct {
	store  kvstore.Store
	log    zerolog.Logger
	prefix string
	ttl    time.Duration
}

// New builds the cache and runs its one-time bootstrap: a TTL marker key is
// written under the prefix if absent. The bootstrap is idempotent; racing
// initializers overwrite the marker with the same content. A bootstrap
// failure makes the cache unusable and is returned as an error.
func New(ctx context.Context, store kvstore.Store, cfg Config, log zerolog.Logger) (*Cache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		store:  store,
		log:    log.With().Str("component", "dedup").Logger(),
		prefix: NormalizePrefix(cfg.Prefix),
		ttl:    ttl,
	}
	if err := c.bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("dedup: cache init: %w", err)
	}
	return c, nil
}

// Prefix returns the normalized key prefix, ending in exactly one "-".
func (c *Cache) Prefix() string { return c.prefix }

// TTL returns the entry lifetime used for new cache entries.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) bootstrap(ctx context.Context) error {
	marker := c.prefix + ttlMarkerSuffix
	_, err := c.store.Get(ctx, marker)
	if err == nil {
		return nil
	}
	if !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}
	val := []byte(fmt.Sprintf("%d", int64(c.ttl.Seconds())))
	// The marker itself never expires; it documents the namespace default.
	if err := c.store.Put(ctx, marker, val, nil, 0); err != nil {
		return err
	}
	c.log.Debug().Str("key", marker).Dur("ttl", c.ttl).Msg("ttl marker written")
	return nil
}

// Put writes a value plus metadata under key with the cache TTL. Metadata
// whose encoding exceeds MetadataLimit is rejected outright; it is never
// truncated or silently written.
func (c *Cache) Put(ctx context.Context, key string, value []byte, meta *Metadata) error {
	var encoded []byte
	if meta != nil {
		var err error
		encoded, err = json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("dedup: encode metadata: %w", err)
		}
		if len(encoded) > MetadataLimit {
			return fmt.Errorf("%w: %d bytes > %d", ErrMetadataTooLarge, len(encoded), MetadataLimit)
		}
	}
	return c.store.Put(ctx, key, value, encoded, c.ttl)
}

// Get fetches the decoded entry for key. Missing or expired keys return
// ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) (Entry, error) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw.Value, &e); err != nil {
		return Entry{}, fmt.Errorf("dedup: decode entry %q: %w", key, err)
	}
	return e, nil
}

// Delete removes a key for cache correction. Absence is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// ListKeys lists keys under the cache prefix. With exhaustive set it follows
// continuation cursors until the backend reports completion; otherwise it
// returns the first page only. The second return reports whether the listing
// is known to be complete.
//
// Cursor following is strict: a page that repeats a cursor, or more pages
// than maxListPages, aborts the loop rather than spinning on a misbehaving
// backend.
func (c *Cache) ListKeys(ctx context.Context, exhaustive bool) ([]string, bool, error) {
	var keys []string
	cursor := ""
	seen := map[string]bool{}

	for page := 0; ; page++ {
		if page >= maxListPages {
			return keys, false, fmt.Errorf("dedup: listing exceeded %d pages", maxListPages)
		}
		p, err := c.store.List(ctx, c.prefix, cursor)
		if err != nil {
			return nil, false, err
		}
		for _, k := range p.Keys {
			keys = append(keys, k.Name)
		}
		if p.Complete {
			return keys, true, nil
		}
		if !exhaustive {
			c.log.Warn().Int("keys", len(keys)).Msg("single-page listing is incomplete; more keys exist")
			return keys, false, nil
		}
		if p.Cursor == "" || seen[p.Cursor] {
			return keys, false, fmt.Errorf("dedup: backend repeated cursor %q", p.Cursor)
		}
		seen[p.Cursor] = true
		cursor = p.Cursor
	}
}

// ListIDs lists keys and parses their numeric suffixes. Keys that do not
// parse under the prefix (foreign tenants, the TTL marker) are logged and
// discarded.
func (c *Cache) ListIDs(ctx context.Context, exhaustive bool) ([]int64, bool, error) {
	keys, complete, err := c.ListKeys(ctx, exhaustive)
	if err != nil {
		return nil, complete, err
	}
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		id, err := c.ParseID(k)
		if err != nil {
			c.log.Debug().Str("key", k).Err(err).Msg("discarding unparseable cache key")
			continue
		}
		ids = append(ids, id)
	}
	return ids, complete, nil
}

// CreateItemEntry caches one item: a fresh UUID, the JSON-encoded entry
// under the prefixed key, and sidecar metadata carrying a correlation UUID
// plus placeholder enrichment fields.
func (c *Cache) CreateItemEntry(ctx context.Context, item hn.Item) (Entry, error) {
	e := Entry{
		UUID:      uuid.NewString(),
		Item:      item,
		CreatedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("dedup: encode entry: %w", err)
	}
	meta := &Metadata{
		UUID:       uuid.NewString(),
		LLMSummary: placeholderSummary(item),
		LLMScore:   placeholderScore(item),
	}
	if err := c.Put(ctx, c.Key(item.ID), value, meta); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Placeholder enrichment until a real summarizer lands. Mirrors what the
// sidecar metadata will eventually carry.
func placeholderSummary(item hn.Item) string {
	if item.Title == "" {
		return ""
	}
	return "[TEST] " + item.Title
}

func placeholderScore(item hn.Item) string {
	if item.Score == 0 {
		return "[TEST] -1"
	}
	return fmt.Sprintf("[TEST] %d", item.Score)
}
