package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentradar/internal/stats"
	"github.com/ppiankov/commentradar/internal/store"
)

var statsTop int

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats [store]",
	Short: "Show statistics of a store file",
	Long: `Stats prints totals, per-platform and per-sentiment counts, the top
contributors, the most liked records and the latest records of a store.

Example:
  commentradar stats
  commentradar stats k8s.json --top 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsTop, "top", stats.DefaultTop, "rows in ranked sections")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	path := cfg.Store.Path
	if len(args) == 1 {
		path = args[0]
	}

	records, err := store.New(path, newLogger(cfg)).Load()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Store: %s\n", path)
	return stats.Render(cmd.OutOrStdout(), stats.Analyze(records, statsTop))
}
