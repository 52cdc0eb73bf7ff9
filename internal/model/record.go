package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidRecord is returned when a record violates the normalized shape.
var ErrInvalidRecord = errors.New("invalid record")

const (
	// MaxTextLength is the number of characters kept from a source's text.
	MaxTextLength = 500

	// MinAPITextLength is the shortest aggregated API text an adapter keeps.
	// Texts of this length or shorter are discarded.
	MinAPITextLength = 20

	// UnknownAuthor is the placeholder used when a source provides no author.
	UnknownAuthor = "Unknown"
)

// Sentiment is a coarse sentiment label
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment parses a label case-insensitively
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, nil
	case SentimentNegative:
		return SentimentNegative, nil
	case SentimentNeutral:
		return SentimentNeutral, nil
	default:
		return "", fmt.Errorf("unknown sentiment %q (expected positive, negative or neutral)", s)
	}
}

// Record is one normalized unit of collected text content.
type Record struct {
	SourceURL  string    `json:"source_url"`           // Canonical locator of the content's origin
	Platform   string    `json:"platform"`             // Platform tag (reddit, hackernews, blog, ...)
	AuthorName string    `json:"author_name"`          // Author, or a placeholder
	Text       string    `json:"text"`                 // Non-empty, truncated content
	PostedAt   string    `json:"posted_at,omitempty"`  // ISO-8601 date or timestamp when known
	Sentiment  Sentiment `json:"sentiment,omitempty"`  // Set by the sentiment tagger
	Likes      *int      `json:"likes,omitempty"`      // Engagement count when known
	Replies    *int      `json:"replies,omitempty"`    // Reply count when known
}

// Key is the identity of a record for deduplication.
type Key struct {
	SourceURL string
	Text      string
}

// Key returns the record's identity key (source_url, text).
func (r Record) Key() Key {
	return Key{SourceURL: r.SourceURL, Text: r.Text}
}

// TextLength returns the number of characters in the record text.
func (r Record) TextLength() int {
	return utf8.RuneCountInString(r.Text)
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.SourceURL) == "":
		return fmt.Errorf("%w: source_url is required", ErrInvalidRecord)
	case strings.TrimSpace(r.Platform) == "":
		return fmt.Errorf("%w: platform is required", ErrInvalidRecord)
	case strings.TrimSpace(r.AuthorName) == "":
		return fmt.Errorf("%w: author_name is required", ErrInvalidRecord)
	case strings.TrimSpace(r.Text) == "":
		return fmt.Errorf("%w: text is required", ErrInvalidRecord)
	case r.Likes != nil && *r.Likes < 0:
		return fmt.Errorf("%w: likes must be non-negative", ErrInvalidRecord)
	case r.Replies != nil && *r.Replies < 0:
		return fmt.Errorf("%w: replies must be non-negative", ErrInvalidRecord)
	}
	return nil
}

// NewRecord builds a normalized record. Text is trimmed and truncated to
// MaxTextLength characters and an empty author falls back to UnknownAuthor.
func NewRecord(sourceURL, platform, author, text string) (Record, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		author = UnknownAuthor
	}

	r := Record{
		SourceURL:  strings.TrimSpace(sourceURL),
		Platform:   strings.ToLower(strings.TrimSpace(platform)),
		AuthorName: author,
		Text:       Truncate(strings.TrimSpace(text), MaxTextLength),
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// UnmarshalJSON accepts both the canonical field names and the ones written
// by older stores (commenter_name, comment_text, date_posted).
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		SourceURL     string    `json:"source_url"`
		Platform      string    `json:"platform"`
		AuthorName    string    `json:"author_name"`
		Text          string    `json:"text"`
		PostedAt      *string   `json:"posted_at"`
		Sentiment     Sentiment `json:"sentiment"`
		Likes         *int      `json:"likes"`
		Replies       *int      `json:"replies"`
		CommenterName string    `json:"commenter_name"`
		CommentText   string    `json:"comment_text"`
		DatePosted    *string   `json:"date_posted"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{
		SourceURL:  raw.SourceURL,
		Platform:   raw.Platform,
		AuthorName: firstNonEmpty(raw.AuthorName, raw.CommenterName),
		Text:       firstNonEmpty(raw.Text, raw.CommentText),
		Sentiment:  raw.Sentiment,
		Likes:      raw.Likes,
		Replies:    raw.Replies,
	}
	switch {
	case raw.PostedAt != nil:
		r.PostedAt = *raw.PostedAt
	case raw.DatePosted != nil:
		r.PostedAt = *raw.DatePosted
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
