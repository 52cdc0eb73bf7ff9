// Package llm writes optional Markdown digests of a record store through an
// OpenAI-compatible chat endpoint. Digests may only cite URLs that are in the
// store.
package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/commentradar/internal/model"
)

var (
	// ErrDisabled is returned when no provider is configured
	ErrDisabled = errors.New("llm digest disabled: no provider configured")

	// ErrCitationLeak is returned when a digest cites a URL outside the allowlist
	ErrCitationLeak = errors.New("digest cited a URL that is not in the store")
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Digest generates a digest of the request's records
	Digest(ctx context.Context, req DigestRequest) (*DigestResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// DigestRequest contains the input for one digest
type DigestRequest struct {
	Topic   string
	Records []model.Record

	// EvidenceURLs is the allowlist of URLs the digest may cite
	EvidenceURLs []string

	// Prompt overrides the default prompt
	Prompt string

	Model     string
	MaxTokens int
}

// DigestResponse contains the provider output
type DigestResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", or "" (disabled)
	Provider string
	Model    string
	APIKey   string

	// BaseURL points at any OpenAI-compatible endpoint
	BaseURL string
	Timeout time.Duration

	// StrictEvidence rejects digests citing URLs outside the store
	StrictEvidence bool

	MaxTokens  int
	MaxRecords int // records included in the prompt
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		StrictEvidence: true,
		MaxTokens:      800,
		MaxRecords:     40,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(cfg model.LLMConfig) Config {
	return Config{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		StrictEvidence: cfg.StrictEvidence,
		MaxTokens:      cfg.MaxTokens,
		MaxRecords:     cfg.MaxRecords,
	}
}

// maxPromptText bounds each record's text inside the prompt
const maxPromptText = 240

// BuildPrompt constructs the default digest prompt
func BuildPrompt(topic string, records []model.Record, evidenceURLs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are writing a short digest of public comments about "%s".

RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. Do not invent sources, quotes or numbers.
3. Report what commenters say, not whether they are right.
4. Mention the overall tone and the recurring themes.

Counts:
- Comments: %d
- By platform: %s
- By sentiment: %s

Comments:
`, topic, joinURLs(evidenceURLs), len(records), countBy(records, func(r model.Record) string { return r.Platform }),
		countBy(records, func(r model.Record) string { return string(r.Sentiment) }))

	for _, r := range records {
		fmt.Fprintf(&b, "- [%s] %s: %s (%s)\n", r.Platform, r.AuthorName, model.Truncate(r.Text, maxPromptText), r.SourceURL)
	}

	b.WriteString("\nWrite 3-5 bullet points in Markdown, citing the supporting URL after each point.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No URLs available)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 40 {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-40)
			break
		}
		fmt.Fprintf(&b, "\n- %s", u)
	}
	return b.String()
}

// countBy renders "a=2, b=1" ordered by count, then key. Empty keys are "unset".
func countBy(records []model.Record, key func(model.Record) string) string {
	counts := make(map[string]int)
	for _, r := range records {
		k := key(r)
		if k == "" {
			k = "unset"
		}
		counts[k]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"]+`)

// extractURLs returns the distinct URLs found in text
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}

// checkCitations fails on the first cited URL that is not allowed
func checkCitations(cited, allowed []string) error {
	allow := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		allow[u] = true
	}
	for _, u := range cited {
		if !allow[u] {
			return fmt.Errorf("%w: %s", ErrCitationLeak, u)
		}
	}
	return nil
}
