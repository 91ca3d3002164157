// Package hn is a client for the public Hacker News Firebase API.
//
// It resolves ranked id feeds and individual items, with concurrent
// resolution that drops the occasional failed item instead of failing the
// batch. The pipeline depends on set-equivalence, not ordering, for batch
// results.
package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL   = "https://hacker-news.firebaseio.com/v0/"
	defaultUserAgent = "hnherald/0.4"
	defaultTimeout   = 10 * time.Second

	// DefaultLimit bounds a fetch when the caller does not pass one.
	DefaultLimit = 5
	// DefaultShards bounds per-request fan-out for sharded fetches.
	DefaultShards = 3
)

type Config struct {
	BaseURL   string        `json:"base_url"`
	UserAgent string        `json:"user_agent"`
	Timeout   time.Duration `json:"-"`
}

type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "hn").Logger(),
	}
}

func (c *Client) endpoint(path string) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", c.cfg.BaseURL, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", path, err)
	}
	u := base.ResolveReference(ref)
	q := u.Query()
	q.Set("print", "pretty")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// getJSON fetches one endpoint and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	u, err := c.endpoint(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// FetchLiveData fetches one live-data feed and returns the tagged result.
// limit <= 0 means the feed's default limit.
func (c *Client) FetchLiveData(ctx context.Context, feed Feed, limit int) (LiveData, error) {
	cfg, ok := feedConfigs[feed]
	if !ok {
		return LiveData{}, fmt.Errorf("unknown live data feed %d", int(feed))
	}

	switch feed {
	case FeedMaxItem:
		var id int64
		if err := c.getJSON(ctx, cfg.endpoint, &id); err != nil {
			return LiveData{}, err
		}
		return LiveData{Kind: LiveMaxItem, MaxItem: id}, nil
	case FeedUpdates:
		var up Updates
		if err := c.getJSON(ctx, cfg.endpoint, &up); err != nil {
			return LiveData{}, err
		}
		if up.Items == nil {
			up.Items = []int64{}
		}
		if up.Profiles == nil {
			up.Profiles = []string{}
		}
		return LiveData{Kind: LiveUpdates, Updates: up}, nil
	default:
		var ids []int64
		if err := c.getJSON(ctx, cfg.endpoint, &ids); err != nil {
			return LiveData{}, err
		}
		if limit <= 0 {
			limit = cfg.defaultLimit
		}
		if limit > 0 && len(ids) > limit {
			ids = ids[:limit]
		}
		return LiveData{Kind: LiveIDs, IDs: ids}, nil
	}
}

// TopStoryIDs returns up to limit ranked top-story ids.
func (c *Client) TopStoryIDs(ctx context.Context, limit int) ([]int64, error) {
	ld, err := c.FetchLiveData(ctx, FeedTop, limit)
	if err != nil {
		return nil, err
	}
	return ld.IDs, nil
}

// NewStoryIDs returns up to limit newest story ids.
func (c *Client) NewStoryIDs(ctx context.Context, limit int) ([]int64, error) {
	ld, err := c.FetchLiveData(ctx, FeedNew, limit)
	if err != nil {
		return nil, err
	}
	return ld.IDs, nil
}

// BestStoryIDs returns up to limit best-story ids.
func (c *Client) BestStoryIDs(ctx context.Context, limit int) ([]int64, error) {
	ld, err := c.FetchLiveData(ctx, FeedBest, limit)
	if err != nil {
		return nil, err
	}
	return ld.IDs, nil
}

// MaxItemID returns the largest item id currently assigned by the API.
func (c *Client) MaxItemID(ctx context.Context) (int64, error) {
	ld, err := c.FetchLiveData(ctx, FeedMaxItem, 0)
	if err != nil {
		return 0, err
	}
	return ld.MaxItem, nil
}

// RecentUpdates returns recently changed items and profiles.
func (c *Client) RecentUpdates(ctx context.Context) (Updates, error) {
	ld, err := c.FetchLiveData(ctx, FeedUpdates, 0)
	if err != nil {
		return Updates{}, err
	}
	return ld.Updates, nil
}

// FetchItem resolves one item by id.
func (c *Client) FetchItem(ctx context.Context, id int64) (Item, error) {
	var item Item
	if err := c.getJSON(ctx, fmt.Sprintf("item/%d.json", id), &item); err != nil {
		return Item{}, err
	}
	if item.ID == 0 {
		// The API answers "null" for unknown ids; a zero id means the
		// decode produced nothing useful.
		return Item{}, fmt.Errorf("item %d: empty response", id)
	}
	return item, nil
}
