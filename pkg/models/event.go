package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventTypeCTF        EventType = "ctf"
	EventTypeConference EventType = "conference"
)

// Event is one CTF or conference, keyed by SourceID for its whole lifetime.
type Event struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceID    string            `gorm:"type:text;not null;uniqueIndex" json:"sourceId"`
	Title       string            `gorm:"type:text;not null;index" json:"title"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	URL         string            `gorm:"type:text;not null" json:"url"`
	LogoURL     string            `gorm:"type:text" json:"logoUrl,omitempty"`
	Type        EventType         `gorm:"type:text;not null;index" json:"type"`
	Format      string            `gorm:"type:text" json:"format,omitempty"`
	StartTime   time.Time         `gorm:"not null;index" json:"startTime"`
	EndTime     time.Time         `gorm:"not null" json:"endTime"`
	Weight      float64           `gorm:"not null;default:0" json:"weight"`
	Meta        datatypes.JSONMap `json:"meta,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ReplaceWith overwrites every mutable field with the candidate's values.
// ID, SourceID and CreatedAt are left untouched.
func (e *Event) ReplaceWith(c *Event) {
	e.Title = c.Title
	e.Description = c.Description
	e.URL = c.URL
	e.LogoURL = c.LogoURL
	e.Type = c.Type
	e.Format = c.Format
	e.StartTime = c.StartTime
	e.EndTime = c.EndTime
	e.Weight = c.Weight
	e.Meta = c.Meta
}

// Tags returns the derived tags stored in Meta, if any.
func (e *Event) Tags() []string {
	if e.Meta == nil {
		return nil
	}
	switch v := e.Meta["tags"].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}
