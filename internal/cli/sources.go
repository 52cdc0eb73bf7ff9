package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/commentradar/internal/model"
	"github.com/ppiankov/commentradar/internal/stats"
)

var platformInfo = map[string]string{
	"reddit":        "Reddit search (public JSON endpoint)",
	"hackernews":    "Hacker News via the Algolia search API",
	"twitter":       "Tweets scraped from Nitter instances (first responsive instance wins)",
	"github":        "GitHub issue and pull request search",
	"stackoverflow": "Stack Overflow questions via the Stack Exchange API",
	"devto":         "DEV Community articles by tag",
	"medium":        "Medium tag RSS feed",
	"youtube":       "Top videos of a YouTube search",
	"blog":          "Blog comments and reviews found via DuckDuckGo (robots.txt respected)",
}

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the supported platforms",
	Long:  `List the platform tags accepted by --platforms, in the order they are queried.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := make([][]string, 0, len(model.AllPlatforms))
		for _, name := range model.AllPlatforms {
			rows = append(rows, []string{name, platformInfo[name]})
		}
		lines := stats.FormatTable([]string{"PLATFORM", "SOURCE"}, rows)
		_, err := cmd.OutOrStdout().Write([]byte(strings.Join(lines, "\n") + "\n"))
		return err
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
