package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/commentradar/internal/pipeline"
)

var collectOpts collectFlags

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect <topic>",
	Short: "Collect comments about a topic once and merge them into the store",
	Long: `Collect queries every selected platform for the topic, normalizes the
results, optionally tags and filters them, and merges them into the store
file without duplicates.

A failing source never stops the run: its error is logged and the other
sources still contribute. A run that collects nothing leaves the store
untouched.

Example:
  commentradar collect "pricing page"
  commentradar collect golang --platforms reddit,hackernews --limit 20
  commentradar collect kubernetes --analyze-sentiment --sentiment negative -o k8s.json`,
	Args: topicArg,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectOpts.register(collectCmd, true)
}

// topicArg requires exactly one non-blank topic
func topicArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return configError(errors.New("exactly one non-empty topic is required"))
	}
	return nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(args[0])
	ctx := cmd.Context()

	cfg, err := resolveConfig(cmd, &collectOpts)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	p, err := newPipeline(cfg, log, nil)
	if err != nil {
		return err
	}

	res, err := p.RunCycle(ctx, topic)
	if err != nil {
		return err
	}
	printCycle(cmd.OutOrStdout(), res)

	if ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

func printCycle(w io.Writer, res *pipeline.CycleResult) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Topic:          %s\n", res.Topic)
	fmt.Fprintf(w, "  Collected:      %d\n", res.Collected)
	fmt.Fprintf(w, "  After filters:  %d\n", res.Kept)
	if res.Skipped {
		fmt.Fprintf(w, "  Store:          %s (unchanged)\n", res.Output)
	} else {
		fmt.Fprintf(w, "  Added:          %d\n", res.Added)
		fmt.Fprintf(w, "  Store total:    %d (%s)\n", res.Total, res.Output)
	}
	if len(res.Failures) > 0 {
		fmt.Fprintf(w, "  Failed sources: %d\n", len(res.Failures))
	}
	fmt.Fprintf(w, "\n")
}
