package sources

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/hash"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/go-faster/errors"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Feed reads conference announcements from RSS or Atom feeds. Feeds are
// independent: one that cannot be fetched or parsed is logged and skipped.
type Feed struct {
	client *Client
	urls   []string
	now    func() time.Time
}

func NewFeed(client *Client, urls []string) *Feed {
	return &Feed{
		client: client,
		urls:   urls,
		now:    time.Now,
	}
}

func (f *Feed) Name() string { return FeedName }

func (f *Feed) Type() models.EventType { return models.EventTypeConference }

// Fetch fails only when every configured feed failed to download.
func (f *Feed) Fetch(ctx context.Context, limit int) ([]RawRecord, error) {
	lg := logging.FromContext(ctx)

	var (
		records  []RawRecord
		firstErr error
		failed   int
	)
	for _, feedURL := range f.urls {
		body, err := f.client.Get(ctx, feedURL, nil)
		if err != nil {
			lg.Error("feed.fetch_failed", zap.String("feed", feedURL), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			failed++
			continue
		}
		items, err := f.parse(body, feedURL)
		if err != nil {
			lg.Error("feed.parse_failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		lg.Info("feed.fetched", zap.String("feed", feedURL), zap.Int("records", len(items)))
		records = append(records, items...)
	}

	if len(f.urls) > 0 && failed == len(f.urls) {
		return nil, firstErr
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (f *Feed) parse(body []byte, feedURL string) ([]RawRecord, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: feedURL, Err: err}
	}

	// Feed items carry no event dates; the fetch instant stands in for both ends.
	stamp := f.now().UTC().Format(time.RFC3339)

	records := make([]RawRecord, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "No Title"
		}
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		payload := map[string]any{
			"id":          link,
			"title":       title,
			"url":         link,
			"description": htmlText(desc),
			"start":       stamp,
			"finish":      stamp,
			"source":      feedURL,
		}
		if item.PublishedParsed != nil {
			payload["published"] = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		if len(item.Categories) > 0 {
			payload["categories"] = item.Categories
		}
		records = append(records, RawRecord{
			SourceID: "rss_" + hash.Key(link),
			Payload:  payload,
		})
	}
	if len(parsed.Items) > 0 && len(records) == 0 {
		return nil, &ParseError{URL: feedURL, Err: errors.New("no item carries a link")}
	}
	return records, nil
}

// htmlText reduces an HTML fragment to its text with whitespace collapsed.
// Script and style bodies are dropped.
func htmlText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	var b strings.Builder
	skip := 0
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			case "br", "p":
				b.WriteByte(' ')
			}
		}
	}
}
