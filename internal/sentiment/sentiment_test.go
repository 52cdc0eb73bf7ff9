package sentiment

import (
	"testing"

	"github.com/ppiankov/commentradar/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want model.Sentiment
	}{
		{"The product has features.", model.SentimentNeutral},
		{"great amazing wonderful", model.SentimentPositive},
		{"terrible awful worst", model.SentimentNegative},
		{"good bad", model.SentimentNeutral},
		{"GREAT release, I Love it!", model.SentimentPositive},
		{"This was poor. Really disappointing...", model.SentimentNegative},
		{"", model.SentimentNeutral},
		// whole words only
		{"goodness badge", model.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestScore_CountsEachCueOnce(t *testing.T) {
	pos, neg := Score("good good bad")
	if pos != 1 || neg != 1 {
		t.Errorf("Score = (%d, %d), want (1, 1)", pos, neg)
	}
}

func TestClassify_RepeatsDoNotFlipLabel(t *testing.T) {
	tests := []struct {
		text string
		want model.Sentiment
	}{
		{"great great terrible awful", model.SentimentNegative},
		{"love love love it, but bad and awful support", model.SentimentNegative},
		{"good good good bad", model.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTagAll(t *testing.T) {
	records := []model.Record{
		{Text: "awesome work"},
		{Text: "awful work", Sentiment: model.SentimentPositive},
		{Text: "plain work"},
	}

	if n := TagAll(records); n != 2 {
		t.Errorf("expected 2 records tagged, got %d", n)
	}
	if records[0].Sentiment != model.SentimentPositive {
		t.Errorf("expected positive, got %q", records[0].Sentiment)
	}
	if records[1].Sentiment != model.SentimentPositive {
		t.Errorf("expected pre-set sentiment to be kept, got %q", records[1].Sentiment)
	}
	if records[2].Sentiment != model.SentimentNeutral {
		t.Errorf("expected neutral, got %q", records[2].Sentiment)
	}

	if n := TagAll(records); n != 0 {
		t.Errorf("second pass should tag nothing, tagged %d", n)
	}
}
