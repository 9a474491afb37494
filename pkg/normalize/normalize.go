package normalize

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/ctfwatch/ctfwatch/pkg/sources"
	"github.com/go-faster/errors"
	"github.com/goccy/go-json"
)

// MaxTextLength bounds free-text fields, counted in runes.
const MaxTextLength = 500

const defaultCTFFormat = "Jeopardy"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizationError rejects a single record; the rest of the batch goes on.
type NormalizationError struct {
	SourceID string
	Field    string
	Err      error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: field %q: %v", e.SourceID, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Normalize coerces a raw record into an Event of the given type. Meta holds
// a copy of the upstream payload.
func Normalize(rec sources.RawRecord, eventType models.EventType) (*models.Event, error) {
	p := rec.Payload
	fail := func(field string, err error) error {
		return &NormalizationError{SourceID: rec.SourceID, Field: field, Err: err}
	}

	if rec.SourceID == "" {
		return nil, fail("id", errors.New("empty source id"))
	}
	title := str(p, "title")
	if title == "" {
		return nil, fail("title", errors.New("missing"))
	}

	start, err := parseTime(str(p, "start"))
	if err != nil {
		return nil, fail("start", err)
	}
	end, err := parseTime(str(p, "finish"))
	if err != nil {
		return nil, fail("finish", err)
	}
	if start.After(end) {
		return nil, fail("finish", errors.Errorf("ends %s before it starts %s", end.Format(time.RFC3339), start.Format(time.RFC3339)))
	}

	format := str(p, "format")
	if format == "" && eventType == models.EventTypeCTF {
		format = defaultCTFFormat
	}

	url := str(p, "url")
	if url == "" {
		url = str(p, "ctftime_url")
	}

	meta := make(map[string]any, len(p))
	maps.Copy(meta, p)

	return &models.Event{
		SourceID:    rec.SourceID,
		Title:       Truncate(title, MaxTextLength),
		Description: Truncate(str(p, "description"), MaxTextLength),
		URL:         url,
		LogoURL:     str(p, "logo"),
		Type:        eventType,
		Format:      format,
		StartTime:   start,
		EndTime:     end,
		Weight:      Weight(p["weight"]),
		Meta:        meta,
	}, nil
}

// Weight coerces an upstream weight to a finite float64, falling back to 0.
func Weight(v any) float64 {
	var f float64
	switch w := v.(type) {
	case float64:
		f = w
	case float32:
		f = float64(w)
	case int:
		f = float64(w)
	case int64:
		f = float64(w)
	case json.Number:
		n, err := w.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unsupported timestamp %q", s)
}

func str(p map[string]any, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
