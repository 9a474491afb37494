package tagger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ctfwatch/ctfwatch/internal/logging"
	"go.uber.org/zap"
)

type Category string

const (
	Web       Category = "web"
	Crypto    Category = "crypto"
	Pwn       Category = "pwn"
	Forensics Category = "forensics"
	Cloud     Category = "cloud"
	ML        Category = "ml"
)

// Set is an unordered collection of tags.
type Set map[Category]struct{}

func NewSet(tags ...Category) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s Set) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// Strings returns the tags sorted, for storage and display.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// Tagger derives topical tags from an event's free text. Implementations
// must be safe for concurrent use.
type Tagger interface {
	Tag(ctx context.Context, title, description string) (Set, error)
}

type TaggingError struct {
	Err error
}

func (e *TaggingError) Error() string { return fmt.Sprintf("tagging: %v", e.Err) }

func (e *TaggingError) Unwrap() error { return e.Err }

var keywords = map[Category][]string{
	Web:       {"xss", "csrf", "injection", "web", "frontend", "http"},
	Crypto:    {"crypto", "cryptography", "rsa", "aes", "encryption"},
	Pwn:       {"pwn", "overflow", "rop", "heap", "binary", "exploit"},
	Forensics: {"forensics", "stegano", "pcap", "network analysis"},
	Cloud:     {"aws", "azure", "gcp", "cloud", "kubernetes", "docker"},
	ML:        {"machine learning", "adversarial", "ai", "model"},
}

// KeywordTagger matches a fixed keyword table as substrings of the
// lower-cased title and description.
type KeywordTagger struct{}

func NewKeywordTagger() KeywordTagger { return KeywordTagger{} }

func (KeywordTagger) Tag(_ context.Context, title, description string) (Set, error) {
	text := strings.ToLower(title + " " + description)
	tags := make(Set)
	for category, words := range keywords {
		if containsAny(text, words) {
			tags[category] = struct{}{}
		}
	}
	return tags, nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Safe runs t and turns any failure into an empty set. Tags are best effort.
func Safe(ctx context.Context, t Tagger, title, description string) Set {
	tags, err := t.Tag(ctx, title, description)
	if err != nil {
		logging.FromContext(ctx).Warn("tagger.failed", zap.Error(&TaggingError{Err: err}))
		return Set{}
	}
	if tags == nil {
		return Set{}
	}
	return tags
}
