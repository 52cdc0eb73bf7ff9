package filter

import (
	"strings"
	"testing"

	"github.com/ppiankov/commentradar/internal/model"
)

func sample() []model.Record {
	return []model.Record{
		{SourceURL: "u1", Text: "short", PostedAt: "2024-01-05", Sentiment: model.SentimentPositive},
		{SourceURL: "u2", Text: strings.Repeat("x", 40), PostedAt: "2024-02-10T08:00:00Z", Sentiment: model.SentimentNegative},
		{SourceURL: "u3", Text: strings.Repeat("y", 15), PostedAt: "2023-12-31", Sentiment: model.SentimentNeutral},
		{SourceURL: "u4", Text: strings.Repeat("z", 25)},
	}
}

func urls(records []model.Record) string {
	var parts []string
	for _, r := range records {
		parts = append(parts, r.SourceURL)
	}
	return strings.Join(parts, ",")
}

func TestByDate(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       string
	}{
		{"no bounds", "", "", "u1,u2,u3,u4"},
		{"start only", "2024-01-01", "", "u1,u2"},
		{"end only", "", "2024-01-31", "u1,u3"},
		{"both", "2024-01-01", "2024-01-31", "u1"},
		{"inclusive", "2024-01-05", "2024-01-05", "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urls(ByDate(sample(), tt.start, tt.end)); got != tt.want {
				t.Errorf("ByDate(%q, %q) = %s, want %s", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestBySentiment(t *testing.T) {
	if got := urls(BySentiment(sample(), "NEGATIVE")); got != "u2" {
		t.Errorf("expected case-insensitive match u2, got %s", got)
	}
	if got := urls(BySentiment(sample(), "neutral")); got != "u3" {
		t.Errorf("untagged records must not match neutral, got %s", got)
	}
	if got := urls(BySentiment(sample(), "")); got != "u1,u2,u3,u4" {
		t.Errorf("empty sentiment should keep all, got %s", got)
	}
}

func TestByLength(t *testing.T) {
	if got := urls(ByLength(sample(), 15, 25)); got != "u3,u4" {
		t.Errorf("expected inclusive bounds to keep u3,u4, got %s", got)
	}
	if got := urls(ByLength(sample(), 30, 0)); got != "u2" {
		t.Errorf("expected only min bound, got %s", got)
	}
	if got := urls(ByLength(sample(), 0, 5)); got != "u1" {
		t.Errorf("expected only max bound, got %s", got)
	}
}

func TestByLength_CountsCharacters(t *testing.T) {
	records := []model.Record{{SourceURL: "u", Text: "ééééé"}}
	if got := ByLength(records, 5, 5); len(got) != 1 {
		t.Error("expected length to count characters, not bytes")
	}
}

func TestApply_Composes(t *testing.T) {
	in := sample()
	opts := Options{StartDate: "2024-01-01", Sentiment: "negative", MinLength: 30}

	got := Apply(in, opts)
	if urls(got) != "u2" {
		t.Errorf("Apply = %s, want u2", urls(got))
	}
	if len(in) != 4 {
		t.Error("input slice must not be modified")
	}
	if !opts.Active() {
		t.Error("expected options to be active")
	}
	if (Options{}).Active() {
		t.Error("zero options should be inactive")
	}
}

func TestApply_NoFilters(t *testing.T) {
	in := sample()
	got := Apply(in, Options{})
	if len(got) != len(in) {
		t.Errorf("expected %d records, got %d", len(in), len(got))
	}
	got[0].Text = "changed"
	if in[0].Text == "changed" {
		t.Error("result must not alias the input")
	}
}
