package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newFeedServer(t *testing.T, ids []int64, scores map[int64]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ids)
	})
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if _, err := fmt.Sscanf(r.URL.Path, "/item/%d.json", &id); err != nil {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    id,
			"type":  "story",
			"title": fmt.Sprintf("Story %d", id),
			"by":    "tester",
			"score": scores[id],
			"time":  time.Now().Unix(),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeAppConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	cfg := fmt.Sprintf(`logging:
  level: error
hackernews:
  base_url: %s/
  limit: 3
filter:
  min_score: 50
cache:
  path: %s
telegram:
  disabled: true
schedule: "@every 1h"
`, baseURL, filepath.Join(dir, "cache.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestAppRunOnceDeduplicatesAcrossRuns(t *testing.T) {
	srv := newFeedServer(t, []int64{1, 2, 3}, map[int64]int{1: 120, 2: 10, 3: 90})
	cfgPath := writeAppConfig(t, t.TempDir(), srv.URL)

	ctx := context.Background()
	a, err := New(ctx, cfgPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Stop(context.Background())

	first := a.RunOnce(ctx)
	if first.Fetched != 3 {
		t.Fatalf("fetched = %d, want 3", first.Fetched)
	}
	if first.Notified != 2 {
		t.Fatalf("first run notified = %d, want 2 (score floor 50)", first.Notified)
	}
	if first.CacheErrors != 0 {
		t.Fatalf("first run cache errors = %d", first.CacheErrors)
	}

	second := a.RunOnce(ctx)
	if second.Notified != 0 {
		t.Fatalf("second run notified = %d, want 0", second.Notified)
	}
	if second.CachedSeen != 2 {
		t.Fatalf("second run cached seen = %d, want 2", second.CachedSeen)
	}
}

func TestAppStartStop(t *testing.T) {
	srv := newFeedServer(t, nil, nil)
	cfgPath := writeAppConfig(t, t.TempDir(), srv.URL)

	ctx := context.Background()
	a, err := New(ctx, cfgPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stop is idempotent.
	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestAppRejectsBadSchedule(t *testing.T) {
	srv := newFeedServer(t, nil, nil)
	dir := t.TempDir()
	cfg := fmt.Sprintf(`hackernews:
  base_url: %s/
cache:
  path: %s
telegram:
  disabled: true
schedule: "not a schedule"
`, srv.URL, filepath.Join(dir, "cache.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx := context.Background()
	a, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Stop(context.Background())
	if err := a.Start(ctx); err == nil {
		t.Fatal("Start accepted an invalid schedule")
	}
}
