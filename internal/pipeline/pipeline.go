// Package pipeline runs one fetch → filter → dedupe → notify pass.
//
// A run is self-contained: it reads cross-run state only through the dedup
// cache and absorbs per-item failures, so a single bad item or a failed
// cache write never aborts the scheduled job. The one accepted race is two
// concurrent runs both deciding an item is new; that costs at most a
// duplicate notification, never corrupted state.
package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hnherald/internal/dedup"
	"hnherald/internal/filter"
	"hnherald/internal/hn"
	"hnherald/internal/notify"
	"hnherald/internal/shard"
)

// Fetcher is the slice of the HN client the pipeline uses.
type Fetcher interface {
	FetchTop(ctx context.Context, limit int) []hn.Item
	FetchTopWithShards(ctx context.Context, limit, shards int, strategy shard.Strategy) []hn.Item
}

// Cache is the slice of the dedup cache the pipeline uses.
type Cache interface {
	ListIDs(ctx context.Context, exhaustive bool) ([]int64, bool, error)
	CreateItemEntry(ctx context.Context, item hn.Item) (dedup.Entry, error)
}

type Config struct {
	Limit int `json:"limit"`
	// Shards > 0 bounds fetch fan-out by splitting the id list; 0 fetches
	// unsharded.
	Shards   int            `json:"shards"`
	Strategy shard.Strategy `json:"-"`
	MinScore int            `json:"min_score"`
	MinTime  int64          `json:"min_time"`
	// ExhaustiveList follows every listing page. Steady state fits one
	// page; set this when cached keys may exceed the backend page size.
	ExhaustiveList bool `json:"exhaustive_list"`
}

// Result summarizes one run for logging and tests.
type Result struct {
	Fetched     int
	CachedSeen  int
	Survived    int
	CacheWrites int
	CacheErrors int
	Notified    int
	// ListComplete is false when the cached-id listing was bounded to one
	// page or failed outright.
	ListComplete bool
}

type Runner struct {
	fetch    Fetcher
	cache    Cache
	notifier notify.Notifier
	log      zerolog.Logger

	mu  sync.Mutex
	cfg Config
}

func NewRunner(cfg Config, fetch Fetcher, cache Cache, notifier notify.Notifier, log zerolog.Logger) *Runner {
	return &Runner{
		fetch:    fetch,
		cache:    cache,
		notifier: notifier,
		log:      log.With().Str("component", "pipeline").Logger(),
		cfg:      cfg,
	}
}

// Apply swaps the run configuration; the next Run picks it up.
func (r *Runner) Apply(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

func (r *Runner) config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Run executes one pipeline pass.
func (r *Runner) Run(ctx context.Context) Result {
	cfg := r.config()
	var res Result

	var items []hn.Item
	if cfg.Shards > 0 {
		items = r.fetch.FetchTopWithShards(ctx, cfg.Limit, cfg.Shards, cfg.Strategy)
	} else {
		items = r.fetch.FetchTop(ctx, cfg.Limit)
	}
	res.Fetched = len(items)

	// A listing failure degrades to an empty cached set: a run that risks
	// duplicate notifications beats a run that silently does nothing.
	cachedIDs, complete, err := r.cache.ListIDs(ctx, cfg.ExhaustiveList)
	if err != nil {
		r.log.Error().Err(err).Msg("cached id listing failed; treating cache as empty")
		cachedIDs = nil
		complete = false
	}
	res.CachedSeen = len(cachedIDs)
	res.ListComplete = complete

	survived := filter.ByNotCached(
		filter.ByMinTime(
			filter.ByMinScore(items, cfg.MinScore),
			cfg.MinTime,
		),
		filter.IDSet(cachedIDs),
	)
	res.Survived = len(survived)

	if len(survived) == 0 {
		r.log.Debug().Int("fetched", res.Fetched).Int("cached", res.CachedSeen).Msg("no new items this run")
		return res
	}

	// Cache writes and notification are independent side effects of the
	// same filtered set: a write failure is logged but the item is still
	// notified, preferring a possible duplicate next run over a lost
	// notification now.
	var (
		mu     sync.Mutex
		writes int
		errors int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range survived {
		g.Go(func() error {
			if _, err := r.cache.CreateItemEntry(gctx, item); err != nil {
				r.log.Error().Int64("id", item.ID).Err(err).Msg("cache write failed")
				mu.Lock()
				errors++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			writes++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	res.CacheWrites = writes
	res.CacheErrors = errors

	res.Notified = r.notifier.NotifyAll(ctx, notify.StoriesFromItems(survived))

	r.log.Info().
		Int("fetched", res.Fetched).
		Int("cached_seen", res.CachedSeen).
		Int("survived", res.Survived).
		Int("cache_writes", res.CacheWrites).
		Int("cache_errors", res.CacheErrors).
		Int("notified", res.Notified).
		Bool("list_complete", res.ListComplete).
		Msg("pipeline run finished")
	return res
}
