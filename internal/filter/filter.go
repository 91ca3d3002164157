// Package filter holds the pure predicates applied to fetched items before
// notification. Each filter is independent; the composed chain yields the
// same result in any order.
package filter

import "hnherald/internal/hn"

// ByMinScore keeps items whose score is at least threshold. An absent score
// counts as 0.
func ByMinScore(items []hn.Item, threshold int) []hn.Item {
	out := make([]hn.Item, 0, len(items))
	for _, it := range items {
		if it.Score >= threshold {
			out = append(out, it)
		}
	}
	return out
}

// ByMinTime keeps items whose creation time (epoch seconds) is at least
// threshold. An absent time counts as 0.
func ByMinTime(items []hn.Item, threshold int64) []hn.Item {
	out := make([]hn.Item, 0, len(items))
	for _, it := range items {
		if it.Time >= threshold {
			out = append(out, it)
		}
	}
	return out
}

// ByNotCached keeps items whose id is not in cached.
func ByNotCached(items []hn.Item, cached map[int64]bool) []hn.Item {
	out := make([]hn.Item, 0, len(items))
	for _, it := range items {
		if !cached[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// IDSet builds the membership set ByNotCached consumes.
func IDSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
