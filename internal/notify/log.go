package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Log is a delivery sink that only logs. It stands in for a real channel
// when every transport is disabled, so a run still reports what it would
// have sent.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify-log").Logger()}
}

func (l *Log) NotifyAll(ctx context.Context, stories []Story) int {
	for _, s := range stories {
		l.log.Info().
			Int64("id", s.ID).
			Str("title", s.Title).
			Str("by", s.Author).
			Str("url", s.URL).
			Msg("would notify")
	}
	return len(stories)
}
