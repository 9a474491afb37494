package api

import (
	"time"

	"github.com/ctfwatch/ctfwatch/pkg/models"
)

const defaultListLimit = 100

type ListParams struct {
	Type   string `validate:"omitempty,oneof=ctf conference"`
	Status string `validate:"omitempty,oneof=upcoming past"`
	Limit  int    `validate:"min=1,max=500"`
}

type EventSummary struct {
	ID        int64     `json:"id" msgpack:"id"`
	Title     string    `json:"title" msgpack:"title"`
	StartTime time.Time `json:"start_time" msgpack:"start_time"`
	EndTime   time.Time `json:"end_time" msgpack:"end_time"`
	Type      string    `json:"type" msgpack:"type"`
	Format    string    `json:"format" msgpack:"format"`
	Weight    float64   `json:"weight" msgpack:"weight"`
	URL       string    `json:"url" msgpack:"url"`
	Logo      string    `json:"logo" msgpack:"logo"`
	Tags      []string  `json:"tags" msgpack:"tags"`
}

type EventDetail struct {
	ID          int64          `json:"id" msgpack:"id"`
	Title       string         `json:"title" msgpack:"title"`
	Description string         `json:"description" msgpack:"description"`
	StartTime   time.Time      `json:"start_time" msgpack:"start_time"`
	EndTime     time.Time      `json:"end_time" msgpack:"end_time"`
	URL         string         `json:"url" msgpack:"url"`
	Type        string         `json:"type" msgpack:"type"`
	Format      string         `json:"format" msgpack:"format"`
	Tags        []string       `json:"tags" msgpack:"tags"`
	RawMetadata map[string]any `json:"raw_metadata" msgpack:"raw_metadata"`
}

func toSummary(e *models.Event) EventSummary {
	tags := e.Tags()
	if tags == nil {
		tags = []string{}
	}
	return EventSummary{
		ID:        e.ID,
		Title:     e.Title,
		StartTime: e.StartTime.UTC(),
		EndTime:   e.EndTime.UTC(),
		Type:      string(e.Type),
		Format:    e.Format,
		Weight:    e.Weight,
		URL:       e.URL,
		Logo:      e.LogoURL,
		Tags:      tags,
	}
}

func toDetail(e *models.Event) EventDetail {
	tags := e.Tags()
	if tags == nil {
		tags = []string{}
	}
	return EventDetail{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime.UTC(),
		EndTime:     e.EndTime.UTC(),
		URL:         e.URL,
		Type:        string(e.Type),
		Format:      e.Format,
		Tags:        tags,
		RawMetadata: e.Meta,
	}
}
