// Package shard partitions ordered identifier lists into sublists so that a
// large fan-out against the upstream API can be issued in bounded batches.
package shard

import (
	"errors"
	"strings"
)

var ErrInvalidShardCount = errors.New("shard count must be positive")

// Strategy selects how identifiers are assigned to shards.
type Strategy int

const (
	// Interleaved assigns input position i to shard i mod n.
	Interleaved Strategy = iota
	// Sequential cuts the input into contiguous blocks of ceil(len/n).
	Sequential
)

func (s Strategy) String() string {
	switch s {
	case Interleaved:
		return "interleaved"
	case Sequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a config string to a Strategy. Unrecognized values
// fall back to Interleaved.
func ParseStrategy(s string) Strategy {
	if strings.EqualFold(strings.TrimSpace(s), "sequential") {
		return Sequential
	}
	return Interleaved
}

// Split partitions ids by the given strategy.
func Split(ids []int64, n int, strategy Strategy) ([][]int64, error) {
	if strategy == Sequential {
		return SplitSequential(ids, n)
	}
	return SplitInterleaved(ids, n)
}

// SplitInterleaved produces n shards where element i of the input lands in
// shard i mod n. Every shard is allocated even if it ends up empty.
func SplitInterleaved(ids []int64, n int) ([][]int64, error) {
	if n <= 0 {
		return nil, ErrInvalidShardCount
	}
	out := make([][]int64, n)
	for i := range out {
		out[i] = []int64{}
	}
	for i, id := range ids {
		out[i%n] = append(out[i%n], id)
	}
	return out, nil
}

// SplitSequential produces contiguous blocks of size ceil(len/n). The final
// block may be shorter, and fewer than n blocks are returned when the input
// does not fill them.
func SplitSequential(ids []int64, n int) ([][]int64, error) {
	if n <= 0 {
		return nil, ErrInvalidShardCount
	}
	if len(ids) == 0 {
		return [][]int64{}, nil
	}
	size := (len(ids) + n - 1) / n
	out := make([][]int64, 0, n)
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end:end])
	}
	return out, nil
}
