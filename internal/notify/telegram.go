package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

type TelegramConfig struct {
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec"`
	Disabled   bool   `json:"disabled"`
}

// Telegram sends one HTML message with inline actions per story. Sends are
// rate limited because Telegram throttles bots that burst.
type Telegram struct {
	bot     *tele.Bot
	chat    *tele.Chat
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewTelegram builds the sender. The bot token is validated against the API
// at construction, so a bad token fails at startup rather than at the first
// scheduled run.
func NewTelegram(cfg TelegramConfig, log zerolog.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	return &Telegram{
		bot:     bot,
		chat:    &tele.Chat{ID: cfg.ChatID},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log.With().Str("component", "telegram").Logger(),
	}, nil
}

// NotifyAll delivers the batch. Each story is sent independently; a failed
// send is logged and the batch continues.
func (t *Telegram) NotifyAll(ctx context.Context, stories []Story) int {
	sent := 0
	now := time.Now()
	for _, s := range stories {
		if err := t.send(ctx, s, now); err != nil {
			t.log.Error().Int64("id", s.ID).Str("title", s.Title).Err(err).Msg("send failed")
			continue
		}
		t.log.Info().Int64("id", s.ID).Str("title", s.Title).Str("by", s.Author).Msg("story notified")
		sent++
	}
	return sent
}

func (t *Telegram) send(ctx context.Context, s Story, now time.Time) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	markup := &tele.ReplyMarkup{}
	var row tele.Row
	for _, b := range BuildButtons(s) {
		row = append(row, markup.URL(b.Text, b.URL))
	}
	markup.Inline(row)

	_, err := t.bot.Send(t.chat, BuildMessage(s, now), &tele.SendOptions{
		ParseMode:   tele.ModeHTML,
		ReplyMarkup: markup,
	})
	return err
}
