package sources

import (
	"context"
	"sort"

	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"github.com/go-faster/errors"
)

const (
	CTFTimeName = "ctftime"
	FeedName    = "rss"
)

var ErrUnknownSource = errors.New("unknown source")

// RawRecord is one upstream item before normalization. Payload keeps the
// upstream's own field names; SourceID is the adapter's stable identity for it.
type RawRecord struct {
	SourceID string
	Payload  map[string]any
}

// Adapter fetches raw records from one upstream. The event type is fixed per
// adapter and never inferred from content.
type Adapter interface {
	Name() string
	Type() models.EventType
	Fetch(ctx context.Context, limit int) ([]RawRecord, error)
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// New builds the registry of every enabled source in cfg.
func New(cfg *config.SourcesConfig, client *Client) *Registry {
	var adapters []Adapter
	if cfg.CTFTime.Enable {
		adapters = append(adapters, NewCTFTime(client, &cfg.CTFTime))
	}
	if cfg.RSS.Enable {
		adapters = append(adapters, NewFeed(client, cfg.RSS.URLs))
	}
	return NewRegistry(adapters...)
}

func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownSource, name)
	}
	return a, nil
}

// Names returns the registered source names in a stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
