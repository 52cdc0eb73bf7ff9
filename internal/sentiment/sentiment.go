// Package sentiment assigns coarse sentiment labels using fixed cue lists.
package sentiment

import (
	"strings"
	"unicode"

	"github.com/ppiankov/commentradar/internal/model"
)

var positiveCues = map[string]bool{
	"good": true, "great": true, "excellent": true, "amazing": true,
	"wonderful": true, "love": true, "best": true, "awesome": true,
}

var negativeCues = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "hate": true,
	"worst": true, "horrible": true, "poor": true, "disappointing": true,
}

// Classify labels text by the number of distinct whole-word cues of each
// polarity it contains. Ties, including no cues at all, are neutral.
func Classify(text string) model.Sentiment {
	pos, neg := Score(text)
	switch {
	case pos > neg:
		return model.SentimentPositive
	case neg > pos:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

// Score returns how many distinct positive and negative cues appear in text.
// A cue repeated in the text counts once.
func Score(text string) (positive, negative int) {
	seen := make(map[string]bool)
	for _, token := range tokenize(text) {
		if seen[token] {
			continue
		}
		seen[token] = true
		if positiveCues[token] {
			positive++
		}
		if negativeCues[token] {
			negative++
		}
	}
	return positive, negative
}

// TagAll sets the sentiment of every record that has none and returns the
// number of records tagged. Already tagged records are left untouched.
func TagAll(records []model.Record) int {
	tagged := 0
	for i := range records {
		if records[i].Sentiment != "" {
			continue
		}
		records[i].Sentiment = Classify(records[i].Text)
		tagged++
	}
	return tagged
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
