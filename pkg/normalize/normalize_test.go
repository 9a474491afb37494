package normalize

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/ctfwatch/ctfwatch/pkg/sources"
	"github.com/go-faster/errors"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctftimeRecord(overrides map[string]any) sources.RawRecord {
	p := map[string]any{
		"id":          float64(42),
		"title":       "Example CTF",
		"description": "Binary exploitation",
		"url":         "https://example.org",
		"ctftime_url": "https://ctftime.org/event/42/",
		"logo":        "https://ctftime.org/logo.png",
		"start":       "2026-11-01T10:00:00Z",
		"finish":      "2026-11-02T10:00:00+02:00",
		"weight":      float64(25.5),
		"format":      "Attack-Defense",
	}
	for k, v := range overrides {
		if v == nil {
			delete(p, k)
			continue
		}
		p[k] = v
	}
	return sources.RawRecord{SourceID: "ctftime_42", Payload: p}
}

func TestNormalize(t *testing.T) {
	ev, err := Normalize(ctftimeRecord(nil), models.EventTypeCTF)
	require.NoError(t, err)

	assert.Equal(t, "ctftime_42", ev.SourceID)
	assert.Equal(t, "Example CTF", ev.Title)
	assert.Equal(t, "https://example.org", ev.URL)
	assert.Equal(t, "https://ctftime.org/logo.png", ev.LogoURL)
	assert.Equal(t, models.EventTypeCTF, ev.Type)
	assert.Equal(t, "Attack-Defense", ev.Format)
	assert.Equal(t, 25.5, ev.Weight)
	assert.Equal(t, time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC), ev.StartTime)
	assert.Equal(t, time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC), ev.EndTime)
	assert.Equal(t, "Example CTF", ev.Meta["title"])
}

func TestNormalizeDefaults(t *testing.T) {
	ev, err := Normalize(ctftimeRecord(map[string]any{
		"url":    nil,
		"format": nil,
		"weight": nil,
	}), models.EventTypeCTF)
	require.NoError(t, err)

	assert.Equal(t, "https://ctftime.org/event/42/", ev.URL)
	assert.Equal(t, "Jeopardy", ev.Format)
	assert.Equal(t, 0.0, ev.Weight)
}

func TestNormalizeTypeIsFixedBySource(t *testing.T) {
	ev, err := Normalize(ctftimeRecord(map[string]any{"title": "Some CTF conference", "format": nil}), models.EventTypeConference)
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeConference, ev.Type)
	assert.Empty(t, ev.Format)
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name  string
		rec   sources.RawRecord
		field string
	}{
		{"bad start", ctftimeRecord(map[string]any{"start": "next tuesday"}), "start"},
		{"missing finish", ctftimeRecord(map[string]any{"finish": nil}), "finish"},
		{"end before start", ctftimeRecord(map[string]any{"start": "2026-11-03T00:00:00Z"}), "finish"},
		{"missing title", ctftimeRecord(map[string]any{"title": ""}), "title"},
		{"no source id", sources.RawRecord{Payload: map[string]any{"title": "x"}}, "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.rec, models.EventTypeCTF)
			var ne *NormalizationError
			require.True(t, errors.As(err, &ne))
			assert.Equal(t, tt.field, ne.Field)
		})
	}
}

func TestNormalizeTruncatesDescription(t *testing.T) {
	long := strings.Repeat("é", MaxTextLength+50)
	ev, err := Normalize(ctftimeRecord(map[string]any{"description": long}), models.EventTypeCTF)
	require.NoError(t, err)
	assert.Equal(t, MaxTextLength, len([]rune(ev.Description)))
}

func TestNormalizeCopiesPayload(t *testing.T) {
	rec := ctftimeRecord(nil)
	ev, err := Normalize(rec, models.EventTypeCTF)
	require.NoError(t, err)

	ev.Meta["tags"] = []string{"pwn"}
	_, leaked := rec.Payload["tags"]
	assert.False(t, leaked)
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 1.5, Weight(1.5))
	assert.Equal(t, 3.0, Weight(3))
	assert.Equal(t, 2.25, Weight("2.25"))
	assert.Equal(t, 7.0, Weight(json.Number("7")))
	assert.Equal(t, 0.0, Weight("heavy"))
	assert.Equal(t, 0.0, Weight(nil))
	assert.Equal(t, 0.0, Weight([]int{1}))
}

func TestWeightRejectsNonFinite(t *testing.T) {
	for _, v := range []any{"NaN", "Inf", "-inf", math.NaN(), math.Inf(1), float32(math.Inf(-1))} {
		assert.Equal(t, 0.0, Weight(v), "%v", v)
	}
}

func TestNormalizeNonFiniteWeightIsZero(t *testing.T) {
	ev, err := Normalize(ctftimeRecord(map[string]any{"weight": "NaN"}), models.EventTypeCTF)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Weight)
}
