package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/filter"
	"github.com/ppiankov/commentradar/internal/metrics"
	"github.com/ppiankov/commentradar/internal/sentiment"
	"github.com/ppiankov/commentradar/internal/sources"
	"github.com/ppiankov/commentradar/internal/store"
	"github.com/ppiankov/commentradar/internal/worker"
)

// Options configures a Pipeline
type Options struct {
	Filter           filter.Options
	AnalyzeSentiment bool
	Overwrite        bool // replace the store instead of merging
	Metrics          *metrics.Collector
	Logger           logrus.FieldLogger
}

// Pipeline runs collection cycles: orchestrate, tag, filter, persist
type Pipeline struct {
	orchestrator *Orchestrator
	store        *store.Store
	opts         Options
	log          logrus.FieldLogger
}

// New creates a pipeline writing to st
func New(orchestrator *Orchestrator, st *store.Store, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		orchestrator: orchestrator,
		store:        st,
		opts:         opts,
		log:          log.WithField("component", "pipeline"),
	}
}

// WithStore returns a copy of the pipeline that persists to st
func (p *Pipeline) WithStore(st *store.Store) *Pipeline {
	cp := *p
	cp.store = st
	return &cp
}

// Store returns the store the pipeline persists to
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// CycleResult summarizes one cycle
type CycleResult struct {
	RunID     string
	Topic     string
	Output    string
	Collected int // records returned by the sources
	Kept      int // records left after filtering
	Added     int // records new to the store
	Total     int // records in the store after the cycle
	Tagged    int // records given a sentiment label
	Failures  []*sources.SourceError
	Skipped   bool // nothing to persist, the store was not touched
	Duration  time.Duration
}

// RunCycle collects topic once and persists the result. Source failures are
// reported in the result; only a persistence failure is returned as an error.
func (p *Pipeline) RunCycle(ctx context.Context, topic string) (*CycleResult, error) {
	start := time.Now()
	res := &CycleResult{
		RunID:  uuid.NewString(),
		Topic:  topic,
		Output: p.store.Path(),
	}
	log := p.log.WithFields(logrus.Fields{"run_id": res.RunID, "topic": topic})
	log.WithField("sources", p.orchestrator.Sources()).Info("Cycle started")

	run := p.orchestrator.Run(ctx, topic)
	res.Collected = len(run.Records)
	res.Failures = run.Failures

	records := run.Records
	if p.opts.AnalyzeSentiment {
		res.Tagged = sentiment.TagAll(records)
	}
	if p.opts.Filter.Active() {
		records = filter.Apply(records, p.opts.Filter)
	}
	res.Kept = len(records)

	if len(records) == 0 {
		res.Skipped = true
		res.Duration = time.Since(start)
		log.WithField("failed_sources", len(res.Failures)).Warn("No records collected, store left untouched")
		p.opts.Metrics.ObserveCycle(metrics.StatusEmpty, res.Duration.Seconds(), -1)
		return res, nil
	}

	persist := p.store.Merge
	if p.opts.Overwrite {
		persist = p.store.Replace
	}
	merged, err := persist(records)
	res.Duration = time.Since(start)
	if err != nil {
		p.opts.Metrics.ObserveCycle(metrics.StatusFailed, res.Duration.Seconds(), -1)
		return res, fmt.Errorf("persist %s: %w", p.store.Path(), err)
	}
	res.Added = merged.Added
	res.Total = merged.Total

	log.WithFields(logrus.Fields{
		"collected":      res.Collected,
		"kept":           res.Kept,
		"added":          res.Added,
		"total":          res.Total,
		"failed_sources": len(res.Failures),
		"duration":       res.Duration.Round(time.Millisecond),
	}).Info("Cycle finished")
	p.opts.Metrics.ObserveCycle(metrics.StatusSuccess, res.Duration.Seconds(), res.Total)
	return res, nil
}

// BatchRunner runs each topic into its own store file under a directory
type BatchRunner struct {
	pipeline  *Pipeline
	outputDir string

	mu     sync.Mutex
	stores map[string]*store.Store
}

// NewBatchRunner creates a runner writing <outputDir>/<slug>.json per topic
func NewBatchRunner(p *Pipeline, outputDir string) *BatchRunner {
	return &BatchRunner{
		pipeline:  p,
		outputDir: outputDir,
		stores:    make(map[string]*store.Store),
	}
}

// RunTopic runs one cycle for topic
func (b *BatchRunner) RunTopic(ctx context.Context, topic string) (worker.TopicStats, error) {
	st := b.storeFor(filepath.Join(b.outputDir, Slug(topic)+".json"))
	res, err := b.pipeline.WithStore(st).RunCycle(ctx, topic)
	stats := worker.TopicStats{Output: st.Path()}
	if res != nil {
		stats.Collected = res.Kept
		stats.Added = res.Added
		stats.Total = res.Total
	}
	return stats, err
}

// storeFor returns one Store per path so topics with the same slug share a lock
func (b *BatchRunner) storeFor(path string) *store.Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.stores[path]; ok {
		return st
	}
	st := store.New(path, b.pipeline.opts.Logger)
	b.stores[path] = st
	return st
}

// Slug turns a topic into a file-name-safe lowercase slug
func Slug(topic string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "topic"
	}
	return slug
}

// EnsureDir creates dir if needed
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
