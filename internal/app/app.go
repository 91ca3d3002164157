// Package app wires the daemon together: config, storage, cache, client,
// notifiers, and the cron schedule that triggers pipeline runs.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"hnherald/internal/config"
	"hnherald/internal/dedup"
	"hnherald/internal/hn"
	"hnherald/internal/kvstore"
	"hnherald/internal/notify"
	"hnherald/internal/pipeline"
	"hnherald/internal/shard"
	"hnherald/pkg/logx"
)

type App struct {
	log    zerolog.Logger
	cfgMgr *config.Manager
	store  kvstore.Store
	runner *pipeline.Runner

	cron *cron.Cron

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// New builds the full service from a config path. Cache bootstrap failure
// is fatal here: a pipeline cannot make dedup decisions without its cache.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgMgr := config.NewManager(cfgPath, logx.Nop())
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logx.New(logx.Config{Level: cfg.Logging.Level, Console: cfg.Logging.Console, File: cfg.Logging.File})
	cfgMgr = config.NewManager(cfgPath, log)
	if _, err := cfgMgr.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := kvstore.OpenSQLite(kvstore.Config{Path: cfg.Cache.Path}, log)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	cache, err := dedup.New(ctx, store, dedup.Config{Prefix: cfg.Cache.Prefix, TTL: cfg.Cache.EntryTTL}, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	client := hn.NewClient(hn.Config{
		BaseURL:   cfg.HackerNews.BaseURL,
		UserAgent: cfg.HackerNews.UserAgent,
		Timeout:   cfg.HackerNews.RequestTimeout,
	}, log)

	notifier, err := buildNotifiers(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	runner := pipeline.NewRunner(pipelineConfig(cfg), client, cache, notifier, log)

	return &App{
		log:    log.With().Str("component", "app").Logger(),
		cfgMgr: cfgMgr,
		store:  store,
		runner: runner,
	}, nil
}

func buildNotifiers(cfg *config.Config, log zerolog.Logger) (notify.Notifier, error) {
	var channels notify.Multi
	if !cfg.Telegram.Disabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:      cfg.Telegram.Token,
			ChatID:     cfg.Telegram.ChatID,
			RatePerSec: cfg.Telegram.RatePerSec,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		channels = append(channels, tg)
	}
	if cfg.EmailEnabled() {
		em, err := notify.NewEmail(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		channels = append(channels, em)
	}
	if len(channels) == 0 {
		return notify.NewLog(log), nil
	}
	return channels, nil
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		Limit:          cfg.HackerNews.Limit,
		Shards:         cfg.HackerNews.Shards,
		Strategy:       shard.ParseStrategy(cfg.HackerNews.ShardStrategy),
		MinScore:       cfg.Filter.MinScore,
		MinTime:        cfg.Filter.MinTime,
		ExhaustiveList: cfg.Exhaustive,
	}
}

// RunOnce executes a single pipeline pass outside the schedule.
func (a *App) RunOnce(ctx context.Context) pipeline.Result {
	return a.runner.Run(ctx)
}

// Start registers the watch job and begins the schedule, the config
// watcher, and the reload loop.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgMgr.Get()

	rctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	a.cron = cron.New(cron.WithParser(parser))
	if _, err := a.cron.AddFunc(cfg.Schedule, func() {
		a.runner.Run(rctx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	a.cron.Start()
	a.log.Info().Str("schedule", cfg.Schedule).Msg("watch job scheduled")

	updates := a.cfgMgr.Subscribe(1)

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(rctx); err != nil {
			a.log.Warn().Err(err).Msg("config watcher stopped")
		}
	}()
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-rctx.Done():
				return
			case next, ok := <-updates:
				if !ok {
					return
				}
				// Thresholds and fetch bounds apply live; transports and
				// the schedule require a restart.
				a.runner.Apply(pipelineConfig(next))
				a.log.Info().
					Int("min_score", next.Filter.MinScore).
					Int64("min_time", next.Filter.MinTime).
					Int("limit", next.HackerNews.Limit).
					Msg("pipeline thresholds reloaded")
			}
		}
	}()
	return nil
}

// Stop halts the schedule, waits for a running job to finish, and closes
// storage.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	a.mu.Unlock()

	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			a.log.Warn().Msg("shutdown deadline reached with job still running")
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	err := a.store.Close()
	a.log.Info().Msg("stopped")
	return err
}
