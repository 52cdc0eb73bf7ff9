package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/commentradar/internal/pipeline"
	"github.com/ppiankov/commentradar/internal/worker"
)

var (
	batchOpts        collectFlags
	topicConcurrency int
	outputDir        string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Collect comments for many topics from a file in parallel",
	Long: `Batch runs one collection cycle per topic listed in a file:
- One topic per line; blank lines and lines starting with # are ignored
- Duplicate topics are collected once
- Topics run in parallel with a configurable worker count
- Each topic merges into <output-dir>/<slug>.json

Example:
  commentradar batch topics.txt
  commentradar batch topics.txt --workers 4 --output-dir ./radar`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchOpts.register(batchCmd, false)
	batchCmd.Flags().IntVar(&topicConcurrency, "workers", runtime.NumCPU(), "number of topics collected concurrently")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./commentradar-stores", "output directory for store files")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, &batchOpts)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	topics, err := worker.ReadTopicsFromFile(file)
	if err != nil {
		return configError(fmt.Errorf("read topics: %w", err))
	}
	if len(topics) == 0 {
		return configError(fmt.Errorf("no topics in %s", file))
	}

	if err := pipeline.EnsureDir(outputDir); err != nil {
		return err
	}

	// the batch runner gives every topic its own store
	p, err := newPipeline(cfg, log, nil)
	if err != nil {
		return err
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Input file:   %s\n", file)
	fmt.Fprintf(w, "  Topics:       %d\n", len(topics))
	fmt.Fprintf(w, "  Workers:      %d\n", topicConcurrency)
	fmt.Fprintf(w, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(w, "\n")

	processor := worker.NewBatchProcessor(pipeline.NewBatchRunner(p, outputDir), topicConcurrency)
	results := processor.ProcessTopics(ctx, topics)

	out := cmd.OutOrStdout()
	failures := 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(out, "✗ %s: %v\n", result.Topic, result.Error)
			continue
		}
		fmt.Fprintf(out, "✓ %s: %d collected, %d added, %d total (%s)\n",
			result.Topic, result.Stats.Collected, result.Stats.Added, result.Stats.Total, result.Stats.Output)
	}

	fmt.Fprintf(out, "\n  Total: %d topics, %d succeeded, %d failed\n\n", len(results), len(results)-failures, failures)

	if ctx.Err() != nil {
		return ErrCancelled
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d topics failed", failures, len(results))
	}
	return nil
}
