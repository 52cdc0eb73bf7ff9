package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentradar/internal/llm"
	"github.com/ppiankov/commentradar/internal/store"
)

var (
	digestTopic    string
	digestOutput   string
	digestProvider string
	digestModel    string
	digestBaseURL  string
	digestMax      int
)

// digestCmd represents the digest command
var digestCmd = &cobra.Command{
	Use:   "digest [store]",
	Short: "Write an LLM digest of a store file (optional, needs a provider)",
	Long: `Digest asks an OpenAI-compatible endpoint (OpenAI or a local Ollama) for a
short Markdown summary of the records in a store.

The digest may only cite URLs of records in the store: a response citing any
other URL is rejected. The store itself is never modified.

Example:
  OPENAI_API_KEY=sk-... commentradar digest k8s.json --topic kubernetes --provider openai
  commentradar digest --provider ollama --model llama3.2 -o digest.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVar(&digestTopic, "topic", "", "topic named in the digest (default: store file name)")
	digestCmd.Flags().StringVarP(&digestOutput, "output", "o", "", "write the digest to this Markdown file instead of stdout")
	digestCmd.Flags().StringVar(&digestProvider, "provider", "", "LLM provider (openai, ollama)")
	digestCmd.Flags().StringVar(&digestModel, "model", "", "LLM model name")
	digestCmd.Flags().StringVar(&digestBaseURL, "base-url", "", "OpenAI-compatible API base URL")
	digestCmd.Flags().IntVar(&digestMax, "max-records", 0, "records included in the prompt")
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.LLM.Provider = digestProvider
	}
	if flags.Changed("model") {
		cfg.LLM.Model = digestModel
	}
	if flags.Changed("base-url") {
		cfg.LLM.BaseURL = digestBaseURL
	}
	if flags.Changed("max-records") {
		cfg.LLM.MaxRecords = digestMax
	}
	log := newLogger(cfg)

	path := cfg.Store.Path
	if len(args) == 1 {
		path = args[0]
	}
	topic := digestTopic
	if topic == "" {
		topic = topicFromPath(path)
	}

	llmCfg := llm.ConfigFromModel(cfg.LLM)
	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		return configError(err)
	}
	if provider == nil {
		return configError(llm.ErrDisabled)
	}

	records, err := store.New(path, log).Load()
	if err != nil {
		return err
	}

	digest, err := llm.NewDigester(provider, llmCfg, log).Generate(cmd.Context(), topic, records)
	if err != nil {
		return err
	}
	md := llm.RenderMarkdown(digest)

	if digestOutput == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	if err := os.WriteFile(digestOutput, []byte(md), 0644); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Digest written to %s (%d tokens)\n", digestOutput, digest.TokensUsed)
	return nil
}

// topicFromPath derives a topic label from a store file name
func topicFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, "-", " ")
}
