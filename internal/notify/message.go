package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"hnherald/pkg/basex"
)

const (
	shortLinkBase = "https://readhacker.news/"

	freshWindow = 4 * time.Hour
	staleAfter  = 48 * time.Hour
)

// shortStoryURL is the short redirect for the story target; falls back to
// the short comments URL for self posts without an external link.
func shortStoryURL(s Story) string {
	short, err := basex.Encode(s.ID)
	if err != nil {
		return hnItemURL(s.ID)
	}
	if s.URL == "" {
		return shortLinkBase + "c/" + short
	}
	return shortLinkBase + "s/" + short
}

func shortCommentsURL(s Story) string {
	short, err := basex.Encode(s.ID)
	if err != nil {
		return hnItemURL(s.ID)
	}
	return shortLinkBase + "c/" + short
}

// freshnessEmoji marks very recent stories hot and day-old ones cold.
// Stories without a timestamp get no marker.
func freshnessEmoji(s Story, now time.Time) string {
	if s.Time <= 0 {
		return ""
	}
	delta := now.Sub(time.Unix(s.Time, 0))
	switch {
	case delta <= freshWindow:
		return "🔥 "
	case delta >= staleAfter:
		return "❄️ "
	default:
		return ""
	}
}

// BuildMessage renders the Telegram HTML body for one story.
func BuildMessage(s Story, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b> %s", html.EscapeString(s.Title), freshnessEmoji(s, now))

	var header []string
	if s.Score > 0 {
		header = append(header, fmt.Sprintf("Score: %d+", s.Score))
	}
	if s.Author != "" {
		header = append(header, "by "+s.Author)
	}
	if len(header) > 0 {
		fmt.Fprintf(&b, "\n(%s)", strings.Join(header, " · "))
	}

	fmt.Fprintf(&b, "\n\n<b>Link:</b> %s", shortStoryURL(s))
	fmt.Fprintf(&b, "\n<b>Comments:</b> %s", shortCommentsURL(s))
	return b.String()
}

// Buttons describes the inline actions attached to a story message.
type Button struct {
	Text string
	URL  string
}

// BuildButtons returns the Read and Comments actions for a story. Read
// targets the story URL directly (or the HN page for self posts); Comments
// targets the canonical HN comments page.
func BuildButtons(s Story) []Button {
	readText := "Read"
	readURL := s.URL
	if readURL == "" {
		readText = "Read HN"
		readURL = hnItemURL(s.ID)
	}

	commentsText := "Comments"
	if s.Descendants > 0 {
		commentsText = fmt.Sprintf("Comments (%d+)", s.Descendants)
	}

	return []Button{
		{Text: readText, URL: readURL},
		{Text: commentsText, URL: hnItemURL(s.ID)},
	}
}
