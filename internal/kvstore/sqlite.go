package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Config struct {
	Path        string        `json:"path"`
	BusyTimeout time.Duration `json:"-"`
	// PageSize overrides the listing page size, capped at MaxPageSize.
	// Mainly for tests; production uses the cap.
	PageSize int `json:"-"`
}

type sqliteStore struct {
	db       *sql.DB
	log      zerolog.Logger
	pageSize int

	opCount    atomic.Uint64
	pruneEvery uint64
}

// OpenSQLite opens (creating if needed) the sqlite-backed store.
func OpenSQLite(cfg Config, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("kvstore: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	st := &sqliteStore{
		db:         db,
		log:        log.With().Str("component", "kvstore").Logger(),
		pageSize:   pageSize,
		pruneEvery: 500,
	}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes or replaces an entry. ttl <= 0 stores without expiry.
// Last writer wins on key conflicts.
func (s *sqliteStore) Put(ctx context.Context, key string, value, metadata []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("kvstore: empty key")
	}
	now := time.Now()
	var expires int64
	if ttl > 0 {
		expires = now.Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, metadata, created_ms, expires_ms) VALUES(?,?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET
		   value=excluded.value, metadata=excluded.metadata,
		   created_ms=excluded.created_ms, expires_ms=excluded.expires_ms`,
		key, value, metadata, now.UnixMilli(), expires,
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		s.pruneExpired(pctx)
		cancel()
	}
	return err
}

func (s *sqliteStore) Get(ctx context.Context, key string) (Entry, error) {
	var (
		e         Entry
		createdMS int64
		expiresMS int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, metadata, created_ms, expires_ms FROM kv
		 WHERE key = ? AND (expires_ms = 0 OR expires_ms > ?)`,
		key, time.Now().UnixMilli(),
	).Scan(&e.Key, &e.Value, &e.Metadata, &createdMS, &expiresMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.UnixMilli(createdMS)
	if expiresMS > 0 {
		e.ExpiresAt = time.UnixMilli(expiresMS)
	}
	return e, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// List returns one page of live keys under prefix, in lexicographic order.
// cursor is the last key of the previous page ("" starts from the top);
// Complete reports whether this page reached the end of the range.
func (s *sqliteStore) List(ctx context.Context, prefix, cursor string) (Page, error) {
	// One extra row tells us whether another page exists.
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, metadata FROM kv
		 WHERE key LIKE ? ESCAPE '\' AND key > ? AND (expires_ms = 0 OR expires_ms > ?)
		 ORDER BY key LIMIT ?`,
		likePattern(prefix), cursor, time.Now().UnixMilli(), s.pageSize+1,
	)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		var ki KeyInfo
		if err := rows.Scan(&ki.Name, &ki.Metadata); err != nil {
			return Page{}, err
		}
		page.Keys = append(page.Keys, ki)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	if len(page.Keys) > s.pageSize {
		page.Keys = page.Keys[:s.pageSize]
		page.Cursor = page.Keys[len(page.Keys)-1].Name
		page.Complete = false
	} else {
		page.Complete = true
	}
	return page, nil
}

// likePattern escapes LIKE wildcards in prefix so a literal "%" in a key
// cannot widen the match.
func likePattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func (s *sqliteStore) pruneExpired(ctx context.Context) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_ms > 0 AND expires_ms < ?`, time.Now().UnixMilli())
	if err != nil {
		s.log.Debug().Err(err).Msg("expiry prune failed")
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.log.Debug().Int64("pruned", n).Msg("expired entries removed")
	}
}
