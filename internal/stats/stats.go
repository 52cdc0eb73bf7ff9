// Package stats summarizes a record store for the stats command.
package stats

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ppiankov/commentradar/internal/model"
)

// DefaultTop is the number of rows shown in ranked sections
const DefaultTop = 5

// previewWidth bounds the display width of record text in tables
const previewWidth = 60

// Count is one row of a frequency table
type Count struct {
	Key   string
	Count int
}

// Report is the summary of a store
type Report struct {
	Total       int
	ByPlatform  []Count
	BySentiment []Count
	TopAuthors  []Count
	MostLiked   []model.Record // records with a like count only
	Latest      []model.Record // records with posted_at only, newest first
}

// Analyze builds a report. top bounds the ranked sections; non-positive
// values use DefaultTop.
func Analyze(records []model.Record, top int) *Report {
	if top <= 0 {
		top = DefaultTop
	}

	platforms := make(map[string]int)
	sentiments := make(map[string]int)
	authors := make(map[string]int)
	var liked, dated []model.Record

	for _, r := range records {
		platforms[r.Platform]++
		s := string(r.Sentiment)
		if s == "" {
			s = "untagged"
		}
		sentiments[s]++
		authors[r.AuthorName]++

		if r.Likes != nil {
			liked = append(liked, r)
		}
		if r.PostedAt != "" {
			dated = append(dated, r)
		}
	}

	sort.SliceStable(liked, func(i, j int) bool { return *liked[i].Likes > *liked[j].Likes })
	// ISO-8601 strings order lexicographically
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].PostedAt > dated[j].PostedAt })

	return &Report{
		Total:       len(records),
		ByPlatform:  ranked(platforms, 0),
		BySentiment: ranked(sentiments, 0),
		TopAuthors:  ranked(authors, top),
		MostLiked:   head(liked, top),
		Latest:      head(dated, top),
	}
}

// ranked orders counts descending, then by key. n <= 0 keeps all rows.
func ranked(counts map[string]int, n int) []Count {
	rows := make([]Count, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, Count{Key: k, Count: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Key < rows[j].Key
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func head(records []model.Record, n int) []model.Record {
	if len(records) > n {
		return records[:n]
	}
	return records
}

// Render writes the report as aligned plain-text tables
func Render(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Total records: %d\n", r.Total)
	if r.Total == 0 {
		_, err := io.WriteString(w, b.String())
		return err
	}

	section(&b, "By platform", []string{"PLATFORM", "COUNT"}, countRows(r.ByPlatform))
	section(&b, "By sentiment", []string{"SENTIMENT", "COUNT"}, countRows(r.BySentiment))
	section(&b, "Top contributors", []string{"AUTHOR", "COMMENTS"}, countRows(r.TopAuthors))

	if len(r.MostLiked) > 0 {
		rows := make([][]string, 0, len(r.MostLiked))
		for _, rec := range r.MostLiked {
			rows = append(rows, []string{strconv.Itoa(*rec.Likes), rec.Platform, rec.AuthorName, preview(rec.Text)})
		}
		section(&b, "Most liked", []string{"LIKES", "PLATFORM", "AUTHOR", "TEXT"}, rows)
	}

	if len(r.Latest) > 0 {
		rows := make([][]string, 0, len(r.Latest))
		for _, rec := range r.Latest {
			rows = append(rows, []string{rec.PostedAt, rec.Platform, rec.AuthorName, preview(rec.Text)})
		}
		section(&b, "Latest", []string{"POSTED", "PLATFORM", "AUTHOR", "TEXT"}, rows)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func countRows(counts []Count) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Key, strconv.Itoa(c.Count)})
	}
	return rows
}

// preview flattens text to one line that fits previewWidth display columns
func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, previewWidth, "...")
}

func section(b *strings.Builder, title string, header []string, rows [][]string) {
	fmt.Fprintf(b, "\n%s\n", title)
	for _, line := range FormatTable(header, rows) {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

// FormatTable pads every column to its widest cell, measured in terminal
// display columns so wide characters stay aligned. Trailing padding is
// dropped.
func FormatTable(header []string, rows [][]string) []string {
	widths := make([]int, len(header))
	all := append([][]string{header}, rows...)

	for _, row := range all {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(all))
	for _, row := range all {
		var sb strings.Builder
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		lines = append(lines, strings.TrimRight(sb.String(), " "))
	}
	return lines
}
