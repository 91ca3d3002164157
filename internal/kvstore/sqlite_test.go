package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"hnherald/pkg/logx"
)

func openTestStore(t *testing.T, pageSize int) Store {
	t.Helper()
	st, err := OpenSQLite(Config{
		Path:     filepath.Join(t.TempDir(), "kv.db"),
		PageSize: pageSize,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 0)
	ctx := context.Background()

	if err := st.Put(ctx, "HN-1", []byte(`{"id":1}`), []byte(`{"uuid":"u"}`), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, err := st.Get(ctx, "HN-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(e.Value) != `{"id":1}` || string(e.Metadata) != `{"uuid":"u"}` {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ExpiresAt.IsZero() || !e.ExpiresAt.After(e.CreatedAt) {
		t.Fatalf("expected expiry after creation, got %+v", e)
	}
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 0)
	if _, err := st.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}
}

func TestLastWriterWins(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 0)
	ctx := context.Background()

	if err := st.Put(ctx, "k", []byte("one"), nil, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := st.Put(ctx, "k", []byte("two"), []byte("m"), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, err := st.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(e.Value) != "two" {
		t.Fatalf("value = %q, want %q", e.Value, "two")
	}
}

func TestExpiredEntryInvisible(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 0)
	ctx := context.Background()

	if err := st.Put(ctx, "gone", []byte("x"), nil, time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := st.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired key, got %v", err)
	}
	page, err := st.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, k := range page.Keys {
		if k.Name == "gone" {
			t.Fatal("expired key visible in listing")
		}
	}
}

func TestDeleteAbsentKey(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 0)
	if err := st.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("Delete of absent key: %v", err)
	}
}

func TestListPagination(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 4)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("HN-%03d", i)
		if err := st.Put(ctx, key, []byte("v"), nil, 0); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	// A foreign key outside the prefix must not show up.
	if err := st.Put(ctx, "OTHER-1", []byte("v"), nil, 0); err != nil {
		t.Fatalf("Put foreign: %v", err)
	}

	var all []string
	cursor := ""
	pages := 0
	for {
		page, err := st.List(ctx, "HN-", cursor)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		pages++
		for _, k := range page.Keys {
			all = append(all, k.Name)
		}
		if page.Complete {
			break
		}
		if page.Cursor == "" {
			t.Fatal("incomplete page without cursor")
		}
		cursor = page.Cursor
		if pages > 10 {
			t.Fatal("listing did not terminate")
		}
	}

	if pages != 3 {
		t.Fatalf("pages = %d, want 3", pages)
	}
	if len(all) != 10 {
		t.Fatalf("listed %d keys, want 10", len(all))
	}
	for i, k := range all {
		want := fmt.Sprintf("HN-%03d", i)
		if k != want {
			t.Fatalf("key[%d] = %q, want %q", i, k, want)
		}
	}
}

func TestListSinglePageComplete(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 4)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := st.Put(ctx, fmt.Sprintf("HN-%d", i), []byte("v"), nil, 0); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	page, err := st.List(ctx, "HN-", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !page.Complete || len(page.Keys) != 3 {
		t.Fatalf("page = %+v, want 3 keys complete", page)
	}
}

func TestListCarriesMetadata(t *testing.T) {
	t.Parallel()
	st := openTestStore(t, 0)
	ctx := context.Background()

	if err := st.Put(ctx, "HN-9", []byte("v"), []byte(`{"uuid":"x"}`), 0); err != nil {
		t.Fatalf("Put: %v", err)
	}
	page, err := st.List(ctx, "HN-", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Keys) != 1 || string(page.Keys[0].Metadata) != `{"uuid":"x"}` {
		t.Fatalf("unexpected page: %+v", page)
	}
}
