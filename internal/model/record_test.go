package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewRecord(t *testing.T) {
	r, err := NewRecord(" https://example.com/a ", "Reddit", "", "  some useful text  ")
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if r.SourceURL != "https://example.com/a" {
		t.Errorf("unexpected source_url %q", r.SourceURL)
	}
	if r.Platform != "reddit" {
		t.Errorf("expected platform to be lowercased, got %q", r.Platform)
	}
	if r.AuthorName != UnknownAuthor {
		t.Errorf("expected author fallback %q, got %q", UnknownAuthor, r.AuthorName)
	}
	if r.Text != "some useful text" {
		t.Errorf("unexpected text %q", r.Text)
	}
}

func TestNewRecord_EmptyText(t *testing.T) {
	_, err := NewRecord("https://example.com", "blog", "a", "   ")
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestNewRecord_Truncates(t *testing.T) {
	long := strings.Repeat("é", MaxTextLength+50)
	r, err := NewRecord("u", "blog", "a", long)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if r.TextLength() != MaxTextLength {
		t.Errorf("expected %d characters, got %d", MaxTextLength, r.TextLength())
	}
}

func TestRecord_Validate(t *testing.T) {
	neg := -1
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"valid", Record{SourceURL: "u", Platform: "p", AuthorName: "a", Text: "t"}, false},
		{"missing url", Record{Platform: "p", AuthorName: "a", Text: "t"}, true},
		{"missing platform", Record{SourceURL: "u", AuthorName: "a", Text: "t"}, true},
		{"missing author", Record{SourceURL: "u", Platform: "p", Text: "t"}, true},
		{"missing text", Record{SourceURL: "u", Platform: "p", AuthorName: "a"}, true},
		{"negative likes", Record{SourceURL: "u", Platform: "p", AuthorName: "a", Text: "t", Likes: &neg}, true},
		{"negative replies", Record{SourceURL: "u", Platform: "p", AuthorName: "a", Text: "t", Replies: &neg}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecord_Key(t *testing.T) {
	a := Record{SourceURL: "u1", Text: "same page", Platform: "blog"}
	b := Record{SourceURL: "u1", Text: "same page", Platform: "reddit"}
	c := Record{SourceURL: "u1", Text: "another comment"}

	if a.Key() != b.Key() {
		t.Error("expected records with the same url and text to share a key")
	}
	if a.Key() == c.Key() {
		t.Error("expected distinct comments on one page to have distinct keys")
	}
}

func TestRecord_JSONFieldNames(t *testing.T) {
	r := Record{SourceURL: "u", Platform: "blog", AuthorName: "a", Text: "t", Likes: IntPtr(3)}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, field := range []string{`"source_url"`, `"platform"`, `"author_name"`, `"text"`, `"likes":3`} {
		if !strings.Contains(got, field) {
			t.Errorf("expected %s in %s", field, got)
		}
	}
	for _, field := range []string{`"posted_at"`, `"sentiment"`, `"replies"`} {
		if strings.Contains(got, field) {
			t.Errorf("expected absent field %s to be omitted from %s", field, got)
		}
	}
}

func TestRecord_UnmarshalLegacyFields(t *testing.T) {
	legacy := `{"source_url":"u","platform":"blog","commenter_name":"Ann","comment_text":"Great tool!","date_posted":"2024-01-02","sentiment":"positive","likes":null}`

	var r Record
	if err := json.Unmarshal([]byte(legacy), &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if r.AuthorName != "Ann" || r.Text != "Great tool!" || r.PostedAt != "2024-01-02" {
		t.Errorf("legacy fields not mapped: %+v", r)
	}
	if r.Sentiment != SentimentPositive {
		t.Errorf("expected positive sentiment, got %q", r.Sentiment)
	}
	if r.Likes != nil {
		t.Errorf("expected nil likes, got %v", *r.Likes)
	}
}

func TestParseSentiment(t *testing.T) {
	s, err := ParseSentiment(" Positive ")
	if err != nil || s != SentimentPositive {
		t.Errorf("ParseSentiment = %q, %v", s, err)
	}
	if _, err := ParseSentiment("angry"); err == nil {
		t.Error("expected error for unknown sentiment")
	}
}
