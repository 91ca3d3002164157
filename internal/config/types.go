package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the full daemon configuration as loaded from file. Durations
// are strings in the file ("55m", "1h30m") and parsed during Normalize.
type Config struct {
	Logging    Logging    `json:"logging"`
	HackerNews HackerNews `json:"hackernews"`
	Filter     Filter     `json:"filter"`
	Cache      Cache      `json:"cache"`
	Telegram   Telegram   `json:"telegram"`
	Email      Email      `json:"email"`
	// Schedule is a cron expression or @every descriptor for the watch job.
	Schedule string `json:"schedule"`
	// Exhaustive switches cached-key listing to follow every page.
	Exhaustive bool `json:"exhaustive"`
}

type Logging struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
	File    string `json:"file"`
}

type HackerNews struct {
	BaseURL       string `json:"base_url"`
	UserAgent     string `json:"user_agent"`
	Limit         int    `json:"limit"`
	Shards        int    `json:"shards"`
	ShardStrategy string `json:"shard_strategy"`
	Timeout       string `json:"timeout"`

	RequestTimeout time.Duration `json:"-"`
}

type Filter struct {
	// MinScore of 0 means "use the default floor"; set -1 for no floor.
	MinScore int   `json:"min_score"`
	MinTime  int64 `json:"min_time"`
}

type Cache struct {
	Path   string `json:"path"`
	Prefix string `json:"prefix"`
	TTL    string `json:"ttl"`

	EntryTTL time.Duration `json:"-"`
}

type Telegram struct {
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec"`
	Disabled   bool   `json:"disabled"`
}

type Email struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	From     string `json:"from"`
	To       string `json:"to"`
	Username string `json:"username"`
	Password string `json:"password"`
}

const (
	defaultSchedule  = "@every 30m"
	defaultLimit     = 5
	defaultMinScore  = 100
	defaultCachePath = "./data/hnherald.db"
	defaultCacheTTL  = time.Hour
	defaultTimeout   = 10 * time.Second
)

// Normalize fills defaults, parses duration strings, and applies secret
// overrides from the environment. A config that Normalize accepts is ready
// to run.
func (c *Config) Normalize() error {
	if strings.TrimSpace(c.Schedule) == "" {
		c.Schedule = defaultSchedule
	}
	if c.HackerNews.Limit <= 0 {
		c.HackerNews.Limit = defaultLimit
	}
	if c.HackerNews.Shards < 0 {
		return fmt.Errorf("hackernews.shards: must be >= 0, got %d", c.HackerNews.Shards)
	}
	switch strings.ToLower(strings.TrimSpace(c.HackerNews.ShardStrategy)) {
	case "", "interleaved", "sequential":
	default:
		return fmt.Errorf("hackernews.shard_strategy: unknown strategy %q", c.HackerNews.ShardStrategy)
	}

	d, err := ParseDurationOrDefault("hackernews.timeout", c.HackerNews.Timeout, defaultTimeout)
	if err != nil {
		return err
	}
	c.HackerNews.RequestTimeout = d

	if c.Filter.MinScore == 0 {
		c.Filter.MinScore = defaultMinScore
	} else if c.Filter.MinScore < 0 {
		c.Filter.MinScore = 0
	}
	if c.Filter.MinTime < 0 {
		return fmt.Errorf("filter.min_time: must be >= 0, got %d", c.Filter.MinTime)
	}

	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath
	}
	ttl, err := ParseDurationOrDefault("cache.ttl", c.Cache.TTL, defaultCacheTTL)
	if err != nil {
		return err
	}
	c.Cache.EntryTTL = ttl

	if tok := os.Getenv("HNHERALD_TELEGRAM_TOKEN"); tok != "" {
		c.Telegram.Token = tok
	}
	if pw := os.Getenv("HNHERALD_EMAIL_PASSWORD"); pw != "" {
		c.Email.Password = pw
	}

	if !c.Telegram.Disabled {
		if strings.TrimSpace(c.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token: required unless telegram.disabled is set")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id: required unless telegram.disabled is set")
		}
	}
	return nil
}

// EmailEnabled reports whether the secondary email channel is configured.
func (c *Config) EmailEnabled() bool {
	return strings.TrimSpace(c.Email.Host) != ""
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
