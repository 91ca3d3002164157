package hn

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"hnherald/internal/shard"
)

// FetchItems resolves every id concurrently. One id failing to resolve
// (network error, malformed payload, unknown id) drops that id from the
// result; it never fails the batch. The returned order follows completion,
// not input — callers must treat the result as a set.
func (c *Client) FetchItems(ctx context.Context, ids []int64) []Item {
	if len(ids) == 0 {
		return []Item{}
	}

	var (
		mu    sync.Mutex
		items = make([]Item, 0, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			item, err := c.FetchItem(gctx, id)
			if err != nil {
				c.log.Warn().Int64("id", id).Err(err).Msg("item fetch failed; dropping from batch")
				return nil
			}
			mu.Lock()
			items = append(items, item)
			mu.Unlock()
			return nil
		})
	}
	// Per-item errors are absorbed above, so Wait only fails when the
	// dispatch itself did. Treat that as zero items this run.
	if err := g.Wait(); err != nil {
		c.log.Error().Err(err).Msg("item fan-out failed")
		return []Item{}
	}
	return items
}

// FetchTop fetches the ranked top-story ids and resolves them. A failure to
// fetch the id list degrades to "no candidates this run".
func (c *Client) FetchTop(ctx context.Context, limit int) []Item {
	ids, err := c.TopStoryIDs(ctx, limit)
	if err != nil {
		c.log.Error().Err(err).Msg("top story id fetch failed")
		return []Item{}
	}
	return c.FetchItems(ctx, ids)
}

// FetchTopWithShards fetches the ranked ids once, shards them, and resolves
// each shard concurrently. Results are concatenated in shard order. Sharding
// bounds per-request fan-out only: the returned set of items matches the
// unsharded path for the same underlying ids.
func (c *Client) FetchTopWithShards(ctx context.Context, limit, shards int, strategy shard.Strategy) []Item {
	if shards <= 0 {
		shards = DefaultShards
	}
	ids, err := c.TopStoryIDs(ctx, limit)
	if err != nil {
		c.log.Error().Err(err).Msg("top story id fetch failed")
		return []Item{}
	}

	parts, err := shard.Split(ids, shards, strategy)
	if err != nil {
		c.log.Error().Err(err).Int("shards", shards).Msg("sharding failed")
		return []Item{}
	}

	results := make([][]Item, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		g.Go(func() error {
			results[i] = c.FetchItems(gctx, part)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Error().Err(err).Msg("shard fan-out failed")
		return []Item{}
	}

	var items []Item
	for _, r := range results {
		items = append(items, r...)
	}
	if items == nil {
		items = []Item{}
	}
	return items
}
