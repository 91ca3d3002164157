package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EmailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	From     string `json:"from"`
	To       string `json:"to"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Email delivers stories as plain-text messages over SMTP. It is the
// secondary channel; enabled only when a host is configured.
type Email struct {
	cfg EmailConfig
	log zerolog.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg EmailConfig, log zerolog.Logger) (*Email, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("email host is empty")
	}
	if strings.TrimSpace(cfg.From) == "" || strings.TrimSpace(cfg.To) == "" {
		return nil, errors.New("email from and to are required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &Email{cfg: cfg, log: log.With().Str("component", "email").Logger(), send: smtp.SendMail}, nil
}

func (e *Email) NotifyAll(ctx context.Context, stories []Story) int {
	sent := 0
	for _, s := range stories {
		if ctx.Err() != nil {
			e.log.Warn().Err(ctx.Err()).Msg("email batch interrupted")
			return sent
		}
		if err := e.sendStory(s); err != nil {
			e.log.Error().Int64("id", s.ID).Err(err).Msg("email send failed")
			continue
		}
		sent++
	}
	return sent
}

func (e *Email) sendStory(s Story) error {
	subject := s.Title
	if subject == "" {
		subject = fmt.Sprintf("Hacker News story %d", s.ID)
	}
	body := fmt.Sprintf("%s\nby %s · Score: %d\n\nLink: %s\nComments: %s\n",
		s.Title, s.Author, s.Score, shortStoryURL(s), hnItemURL(s.ID))

	msg := BuildPlainTextEmail(e.cfg.From, e.cfg.To, subject, body)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	return e.send(addr, auth, e.cfg.From, []string{e.cfg.To}, msg)
}

// BuildPlainTextEmail assembles an RFC 5322 plain-text message. 7-bit
// transfer encoding: the body must not rely on emoji surviving transport.
func BuildPlainTextEmail(from, to, subject, body string) []byte {
	headers := []string{
		"From: " + from,
		"To: " + to,
		fmt.Sprintf("Message-ID: <%s@hnherald>", uuid.NewString()),
		"Date: " + time.Now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 7bit",
		"Subject: " + subject,
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)
}
