package sources

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/go-faster/errors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// CTFTime reads upcoming events from the CTFtime events API.
type CTFTime struct {
	client *Client
	url    string
	window time.Duration
	now    func() time.Time
}

func NewCTFTime(client *Client, cfg *config.CTFTimeConfig) *CTFTime {
	return &CTFTime{
		client: client,
		url:    cfg.URL,
		window: cfg.Window,
		now:    time.Now,
	}
}

func (c *CTFTime) Name() string { return CTFTimeName }

func (c *CTFTime) Type() models.EventType { return models.EventTypeCTF }

func (c *CTFTime) Fetch(ctx context.Context, limit int) ([]RawRecord, error) {
	lg := logging.FromContext(ctx)
	now := c.now()
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"start":  {strconv.FormatInt(now.Unix(), 10)},
		"finish": {strconv.FormatInt(now.Add(c.window).Unix(), 10)},
	}

	body, err := c.client.Get(ctx, c.url, query)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &ParseError{URL: c.url, Err: err}
	}

	records := make([]RawRecord, 0, len(items))
	for i, item := range items {
		var payload map[string]any
		if err := json.Unmarshal(item, &payload); err != nil || payload == nil {
			if err == nil {
				err = errors.New("item is not an object")
			}
			lg.Warn("ctftime.item_skipped", zap.Int("index", i), zap.Error(&ParseError{URL: c.url, Err: err}))
			continue
		}
		id, ok := nativeID(payload["id"])
		if !ok {
			lg.Warn("ctftime.item_skipped", zap.Int("index", i),
				zap.Error(&ParseError{URL: c.url, Err: errors.New("missing id")}))
			continue
		}
		records = append(records, RawRecord{
			SourceID: "ctftime_" + id,
			Payload:  payload,
		})
	}
	lg.Info("ctftime.fetched", zap.Int("items", len(items)), zap.Int("records", len(records)))
	return records, nil
}

func nativeID(v any) (string, bool) {
	switch id := v.(type) {
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case string:
		return id, id != ""
	default:
		return "", false
	}
}
