// Package pipeline runs collection cycles: fetch a topic from every source,
// tag, filter and merge the result into the store.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/metrics"
	"github.com/ppiankov/commentradar/internal/model"
	"github.com/ppiankov/commentradar/internal/sources"
	"github.com/ppiankov/commentradar/internal/worker"
)

// OrchestratorOptions configures an Orchestrator
type OrchestratorOptions struct {
	LimitPerSource int           // 0 = unlimited
	Pause          time.Duration // between sequential adapters
	Concurrency    int           // > 1 runs adapters in parallel
	Metrics        *metrics.Collector
	Logger         logrus.FieldLogger
}

// Orchestrator fetches one topic from a fixed list of adapters. A failing
// adapter never fails the run.
type Orchestrator struct {
	adapters    []sources.Adapter
	limit       int
	pause       time.Duration
	concurrency int
	metrics     *metrics.Collector
	log         logrus.FieldLogger
}

// NewOrchestrator creates an orchestrator over adapters, kept in the given order
func NewOrchestrator(adapters []sources.Adapter, opts OrchestratorOptions) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		adapters:    append([]sources.Adapter(nil), adapters...),
		limit:       opts.LimitPerSource,
		pause:       opts.Pause,
		concurrency: opts.Concurrency,
		metrics:     opts.Metrics,
		log:         log.WithField("component", "orchestrator"),
	}
}

// RunResult is the outcome of one orchestration run
type RunResult struct {
	Records   []model.Record        // concatenated in adapter order
	Failures  []*sources.SourceError // one per failed adapter
	PerSource map[string]int         // records kept per adapter
}

// Sources returns the adapter names in invocation order
func (o *Orchestrator) Sources() []string {
	names := make([]string, 0, len(o.adapters))
	for _, a := range o.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Run fetches topic from every adapter. Adapters run one at a time with a
// pause between them unless concurrency is above one. Once ctx is done no
// further adapter is started.
func (o *Orchestrator) Run(ctx context.Context, topic string) *RunResult {
	var outcomes []sourceOutcome
	if o.concurrency > 1 && len(o.adapters) > 1 {
		outcomes = o.runParallel(ctx, topic)
	} else {
		outcomes = o.runSequential(ctx, topic)
	}

	result := &RunResult{PerSource: make(map[string]int, len(outcomes))}
	for _, out := range outcomes {
		if out.err != nil {
			result.Failures = append(result.Failures, &sources.SourceError{Source: out.source, Err: out.err})
			continue
		}
		result.PerSource[out.source] = len(out.records)
		result.Records = append(result.Records, out.records...)
	}
	return result
}

type sourceOutcome struct {
	index   int
	source  string
	records []model.Record
	err     error
}

func (o *Orchestrator) runSequential(ctx context.Context, topic string) []sourceOutcome {
	outcomes := make([]sourceOutcome, 0, len(o.adapters))
	for i, adapter := range o.adapters {
		if i > 0 && !o.wait(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, o.fetchSource(ctx, i, adapter, topic))
	}
	return outcomes
}

func (o *Orchestrator) runParallel(ctx context.Context, topic string) []sourceOutcome {
	pool := worker.NewPoolContext(ctx, o.concurrency)
	pool.Start()

	for i, adapter := range o.adapters {
		pool.Submit(&sourceJob{orchestrator: o, index: i, adapter: adapter, topic: topic})
	}

	results := pool.Wait()
	outcomes := make([]sourceOutcome, 0, len(results))
	for _, r := range results {
		if sr, ok := r.(*sourceResult); ok {
			outcomes = append(outcomes, sr.outcome)
		}
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].index < outcomes[j].index
	})
	return outcomes
}

// fetchSource runs one adapter, converting panics into errors and capping
// its output at the per-source limit.
func (o *Orchestrator) fetchSource(ctx context.Context, index int, adapter sources.Adapter, topic string) (out sourceOutcome) {
	name := adapter.Name()
	out = sourceOutcome{index: index, source: name}
	log := o.log.WithFields(logrus.Fields{"source": name, "topic": topic})
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out.records = nil
			out.err = fmt.Errorf("adapter panicked: %v", r)
		}
		if out.err != nil {
			log.WithField("error", out.err).Error("Source failed")
		} else {
			log.WithFields(logrus.Fields{
				"records":  len(out.records),
				"duration": time.Since(start).Round(time.Millisecond),
			}).Info("Source collected")
		}
		o.metrics.ObserveSource(name, len(out.records), out.err)
	}()

	records, err := adapter.Fetch(ctx, topic, o.limit)
	if err != nil {
		out.err = err
		return out
	}

	valid := make([]model.Record, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			log.WithError(err).Debug("Dropping invalid record")
			continue
		}
		valid = append(valid, r)
	}
	if o.limit > 0 && len(valid) > o.limit {
		valid = valid[:o.limit]
	}
	out.records = valid
	return out
}

// wait pauses between adapters. It reports false if ctx ended first.
func (o *Orchestrator) wait(ctx context.Context) bool {
	if o.pause <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.pause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type sourceJob struct {
	orchestrator *Orchestrator
	index        int
	adapter      sources.Adapter
	topic        string
}

func (j *sourceJob) Execute(ctx context.Context) worker.Result {
	return &sourceResult{outcome: j.orchestrator.fetchSource(ctx, j.index, j.adapter, j.topic)}
}

type sourceResult struct {
	outcome sourceOutcome
}

func (r *sourceResult) GetError() error {
	return r.outcome.err
}
