package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/ctfwatch/ctfwatch/pkg/models"
)

const (
	// MaxDigestItems caps itemized entries so a digest stays under the
	// transport's message size.
	MaxDigestItems = 10
	// MaxMessageLength is the Telegram limit for one message.
	MaxMessageLength = 4096
)

// ComposeDigest renders one HTML message for a run's new events, keeping
// their order.
func ComposeDigest(events []*models.Event) string {
	var b strings.Builder
	noun := "Events"
	if len(events) == 1 {
		noun = "Event"
	}
	fmt.Fprintf(&b, "🚨 <b>%d New %s Found!</b>\n\n", len(events), noun)

	for i, ev := range events {
		if i == MaxDigestItems {
			break
		}
		fmt.Fprintf(&b, "🔹 <a href=\"%s\">%s</a> (%s)\n",
			html.EscapeString(ev.URL),
			html.EscapeString(ev.Title),
			ev.StartTime.UTC().Format("2006-01-02"))
	}

	if rest := len(events) - MaxDigestItems; rest > 0 {
		fmt.Fprintf(&b, "\n<i>...and %d more.</i>", rest)
	}
	return truncate(b.String(), MaxMessageLength)
}

// truncate cuts at a line boundary so no HTML tag is left open.
func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := string(runes)
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		cut = cut[:i]
	}
	return cut
}
