// Package notify turns filtered items into recipient-facing messages and
// delivers them. Delivery failures are isolated per item: one failed send
// never stops the rest of the batch.
package notify

import (
	"context"
	"fmt"

	"hnherald/internal/hn"
)

// Story is the notification view of an item: exactly the fields a message
// needs, built explicitly from the domain item rather than passed through
// untyped.
type Story struct {
	ID          int64
	Title       string
	Author      string
	Score       int
	Time        int64
	URL         string
	Descendants int
}

// StoryFromItem projects an item into its notification view.
func StoryFromItem(it hn.Item) Story {
	return Story{
		ID:          it.ID,
		Title:       it.Title,
		Author:      it.By,
		Score:       it.Score,
		Time:        it.Time,
		URL:         it.URL,
		Descendants: it.Descendants,
	}
}

// StoriesFromItems projects a batch.
func StoriesFromItems(items []hn.Item) []Story {
	out := make([]Story, 0, len(items))
	for _, it := range items {
		out = append(out, StoryFromItem(it))
	}
	return out
}

// Notifier delivers one message per story. Implementations absorb per-story
// failures and report only how many deliveries succeeded.
type Notifier interface {
	NotifyAll(ctx context.Context, stories []Story) int
}

// Multi fans a batch out to every configured channel.
type Multi []Notifier

func (m Multi) NotifyAll(ctx context.Context, stories []Story) int {
	sent := 0
	for _, n := range m {
		sent += n.NotifyAll(ctx, stories)
	}
	return sent
}

// hnItemURL is the canonical comments page for a story.
func hnItemURL(id int64) string {
	return fmt.Sprintf("https://news.ycombinator.com/item?id=%d", id)
}
