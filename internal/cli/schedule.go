package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/commentradar/internal/metrics"
	"github.com/ppiankov/commentradar/internal/scheduler"
)

var (
	scheduleOpts collectFlags
	interval     time.Duration
	metricsAddr  string
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule <topic>",
	Short: "Collect comments about a topic repeatedly on a fixed interval",
	Long: `Schedule runs a collection cycle immediately and then once per interval
until interrupted (Ctrl+C or SIGTERM). Each cycle merges into the same store.

A cycle that takes longer than the interval is followed immediately by the
next one. Interrupting never aborts a cycle in progress: the scheduler stops
after the current cycle and prints a summary.

Example:
  commentradar schedule "pricing page" --interval 30m
  commentradar schedule golang --interval 1h --metrics-addr :9090`,
	Args: topicArg,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleOpts.register(scheduleCmd, true)
	scheduleCmd.Flags().DurationVar(&interval, "interval", 0, "time between cycle starts (default from config: 30m)")
	scheduleCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(args[0])
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, &scheduleOpts)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("interval") {
		if interval <= 0 {
			return configError(scheduler.ErrInvalidInterval)
		}
		cfg.Schedule.Interval = interval
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	cfg.CapCacheTTL(cfg.Schedule.Interval)
	log := newLogger(cfg)

	collector := metrics.New()
	p, err := newPipeline(cfg, log, collector)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(p, topic, scheduler.Options{
		Interval: cfg.Schedule.Interval,
		Metrics:  collector,
		Logger:   log,
	})
	if err != nil {
		return configError(err)
	}

	if cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(cfg.Metrics.Addr, collector, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	summary := sched.Run(ctx)
	printSummary(cmd, topic, cfg.Store.Path, summary)
	return nil
}

// serveMetrics starts the /metrics endpoint and returns a function that
// shuts it down
func serveMetrics(addr string, collector *metrics.Collector, log logrus.FieldLogger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
	log.WithField("addr", ln.Addr().String()).Info("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printSummary(cmd *cobra.Command, topic, output string, s scheduler.Summary) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Topic:          %s\n", topic)
	fmt.Fprintf(w, "  Cycles:         %d (%d failed)\n", s.Cycles, s.Failed)
	fmt.Fprintf(w, "  Collected:      %d\n", s.Collected)
	fmt.Fprintf(w, "  Added:          %d\n", s.Added)
	fmt.Fprintf(w, "  Store total:    %d (%s)\n", s.Total, output)
	fmt.Fprintf(w, "\n")
}
