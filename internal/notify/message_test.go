package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"hnherald/internal/hn"
	"hnherald/pkg/logx"
)

func sampleStory() Story {
	return Story{
		ID:          38742953,
		Title:       "Show HN: a <thing> & another",
		Author:      "pg",
		Score:       256,
		Time:        time.Now().Unix(),
		URL:         "https://example.com/post",
		Descendants: 42,
	}
}

func TestBuildMessageEscapesHTML(t *testing.T) {
	t.Parallel()
	msg := BuildMessage(sampleStory(), time.Now())
	if strings.Contains(msg, "<thing>") {
		t.Fatal("title not escaped")
	}
	if !strings.Contains(msg, "&lt;thing&gt;") || !strings.Contains(msg, "&amp;") {
		t.Fatalf("escaped title missing: %q", msg)
	}
	if !strings.Contains(msg, "<b>") {
		t.Fatal("expected bold markup to survive")
	}
}

func TestBuildMessageHeaderAndLinks(t *testing.T) {
	t.Parallel()
	msg := BuildMessage(sampleStory(), time.Now())
	if !strings.Contains(msg, "(Score: 256+ · by pg)") {
		t.Fatalf("header line missing: %q", msg)
	}
	if !strings.Contains(msg, "https://readhacker.news/s/") {
		t.Fatalf("short story link missing: %q", msg)
	}
	if !strings.Contains(msg, "https://readhacker.news/c/") {
		t.Fatalf("short comments link missing: %q", msg)
	}
}

func TestBuildMessageSelfPostUsesCommentsLink(t *testing.T) {
	t.Parallel()
	s := sampleStory()
	s.URL = ""
	if !strings.Contains(BuildMessage(s, time.Now()), "<b>Link:</b> https://readhacker.news/c/") {
		t.Fatal("self post should link the short comments URL")
	}
}

func TestFreshnessEmoji(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"fresh", time.Hour, "🔥 "},
		{"middling", 12 * time.Hour, ""},
		{"stale", 72 * time.Hour, "❄️ "},
	}
	for _, tt := range tests {
		s := Story{Time: now.Add(-tt.age).Unix()}
		if got := freshnessEmoji(s, now); got != tt.want {
			t.Fatalf("%s: emoji = %q, want %q", tt.name, got, tt.want)
		}
	}
	if got := freshnessEmoji(Story{}, now); got != "" {
		t.Fatalf("missing time: emoji = %q, want none", got)
	}
}

func TestBuildButtons(t *testing.T) {
	t.Parallel()
	s := sampleStory()
	btns := BuildButtons(s)
	if len(btns) != 2 {
		t.Fatalf("got %d buttons, want 2", len(btns))
	}
	if btns[0].Text != "Read" || btns[0].URL != s.URL {
		t.Fatalf("read button = %+v", btns[0])
	}
	if btns[1].Text != "Comments (42+)" || !strings.Contains(btns[1].URL, "item?id=38742953") {
		t.Fatalf("comments button = %+v", btns[1])
	}

	s.URL = ""
	s.Descendants = 0
	btns = BuildButtons(s)
	if btns[0].Text != "Read HN" || !strings.Contains(btns[0].URL, "news.ycombinator.com") {
		t.Fatalf("self-post read button = %+v", btns[0])
	}
	if btns[1].Text != "Comments" {
		t.Fatalf("comments button without count = %+v", btns[1])
	}
}

func TestStoryFromItem(t *testing.T) {
	t.Parallel()
	it := hn.Item{ID: 9, By: "alice", Time: 123, Score: 10, Title: "t", URL: "u", Descendants: 3, Kids: []int64{1}}
	s := StoryFromItem(it)
	want := Story{ID: 9, Author: "alice", Time: 123, Score: 10, Title: "t", URL: "u", Descendants: 3}
	if s != want {
		t.Fatalf("StoryFromItem = %+v, want %+v", s, want)
	}
}

func TestEmailNotifyAllIsolatesFailures(t *testing.T) {
	t.Parallel()
	e, err := NewEmail(EmailConfig{Host: "smtp.test", From: "a@test", To: "b@test"}, logx.Nop())
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}

	calls := 0
	e.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		if calls == 2 {
			return errors.New("relay refused")
		}
		return nil
	}

	stories := []Story{{ID: 1, Title: "one"}, {ID: 2, Title: "two"}, {ID: 3, Title: "three"}}
	sent := e.NotifyAll(context.Background(), stories)
	if calls != 3 {
		t.Fatalf("send attempts = %d, want 3 (failure must not stop the batch)", calls)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
}

func TestBuildPlainTextEmailHeaders(t *testing.T) {
	t.Parallel()
	msg := string(BuildPlainTextEmail("a@test", "b@test", "Subject line", "body text"))
	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	if !ok {
		t.Fatal("missing header/body separator")
	}
	for _, want := range []string{"From: a@test", "To: b@test", "Subject: Subject line", "Message-ID: <", "Content-Type: text/plain"} {
		if !strings.Contains(head, want) {
			t.Fatalf("header %q missing in %q", want, head)
		}
	}
	if body != "body text" {
		t.Fatalf("body = %q", body)
	}
}

func TestNewEmailValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewEmail(EmailConfig{}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := NewEmail(EmailConfig{Host: "h"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing addresses")
	}
}
