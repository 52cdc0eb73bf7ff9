// Package scheduler re-runs collection cycles for one topic on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/commentradar/internal/metrics"
	"github.com/ppiankov/commentradar/internal/pipeline"
)

// ErrInvalidInterval is returned for a non-positive interval
var ErrInvalidInterval = errors.New("schedule interval must be positive")

// CycleRunner runs one collection cycle
type CycleRunner interface {
	RunCycle(ctx context.Context, topic string) (*pipeline.CycleResult, error)
}

// Options configures a Scheduler
type Options struct {
	Interval time.Duration
	Metrics  *metrics.Collector
	Logger   logrus.FieldLogger
}

// Summary reports what a scheduler did before it stopped
type Summary struct {
	Cycles    int // cycles run, including failed ones
	Failed    int // cycles that returned an error or panicked
	Collected int // records kept across all cycles
	Added     int // records new to the store across all cycles
	Total     int // store size after the last successful merge
}

// Scheduler runs a cycle immediately, then once per interval until its
// context is cancelled. A cycle that overruns the interval is followed
// immediately by the next one; missed ticks are coalesced, not replayed.
type Scheduler struct {
	runner   CycleRunner
	topic    string
	interval time.Duration
	metrics  *metrics.Collector
	log      logrus.FieldLogger
}

// New creates a scheduler for topic
func New(runner CycleRunner, topic string, opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		runner:   runner,
		topic:    topic,
		interval: opts.Interval,
		metrics:  opts.Metrics,
		log:      log.WithFields(logrus.Fields{"component": "scheduler", "topic": topic}),
	}, nil
}

// Run blocks until ctx is cancelled. Cancellation never interrupts a cycle
// in progress: cycles run on a context detached from ctx, and the loop
// exits once the current cycle has finished.
func (s *Scheduler) Run(ctx context.Context) Summary {
	s.log.WithField("interval", s.interval).Info("Scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cycleCtx := context.WithoutCancel(ctx)
	var summary Summary

	for cycle := 0; ; cycle++ {
		s.runCycle(cycleCtx, cycle, &summary)

		if !waitTick(ctx, ticker) {
			break
		}
	}

	s.log.WithFields(logrus.Fields{
		"cycles":    summary.Cycles,
		"failed":    summary.Failed,
		"collected": summary.Collected,
		"added":     summary.Added,
	}).Info("Scheduler stopped")
	return summary
}

// waitTick blocks until the next tick. It reports false once ctx is done,
// including when cancellation raced with an already pending tick.
func waitTick(ctx context.Context, ticker *time.Ticker) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-ticker.C:
		return ctx.Err() == nil
	}
}

// runCycle runs one cycle, recovering from errors and panics
func (s *Scheduler) runCycle(ctx context.Context, cycle int, summary *Summary) {
	log := s.log.WithField("cycle", cycle)
	start := time.Now()
	summary.Cycles++

	defer func() {
		if r := recover(); r != nil {
			summary.Failed++
			log.WithField("panic", fmt.Sprint(r)).Error("Cycle panicked")
			s.metrics.ObserveCycle(metrics.StatusFailed, time.Since(start).Seconds(), -1)
		}
	}()

	res, err := s.runner.RunCycle(ctx, s.topic)
	if err != nil {
		summary.Failed++
		log.WithError(err).Error("Cycle failed")
		return
	}
	if res == nil {
		return
	}

	summary.Collected += res.Kept
	summary.Added += res.Added
	if !res.Skipped {
		summary.Total = res.Total
	}
	log.WithFields(logrus.Fields{
		"run_id":         res.RunID,
		"added":          res.Added,
		"total":          res.Total,
		"failed_sources": len(res.Failures),
	}).Info("Cycle completed")
}
