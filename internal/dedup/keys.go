package dedup

import (
	"fmt"
	"strconv"
	"strings"
)

const defaultPrefix = "DEFAULT"

// NormalizePrefix canonicalizes a configured namespace prefix: trimmed,
// trailing non-letters stripped, uppercased, and terminated by exactly one
// "-". An empty or unusable input falls back to "DEFAULT-".
func NormalizePrefix(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if s == "" {
		s = defaultPrefix
	}
	return strings.ToUpper(s) + "-"
}

// Key builds the cache key for an item id under the normalized prefix.
func (c *Cache) Key(id int64) string {
	return fmt.Sprintf("%s%d", c.prefix, id)
}

// ParseID extracts the numeric item id from a cache key. It fails for keys
// outside this cache's prefix and for suffixes that are not plain base-10
// integers, so foreign keys sharing the namespace are rejected rather than
// misread.
func (c *Cache) ParseID(key string) (int64, error) {
	suffix, ok := strings.CutPrefix(key, c.prefix)
	if !ok {
		return 0, fmt.Errorf("key %q outside prefix %q", key, c.prefix)
	}
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("key %q has non-numeric suffix: %w", key, err)
	}
	return id, nil
}
