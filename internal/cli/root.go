package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentradar/internal/logging"
)

// Version is set at build time
var Version = "v0.2.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "commentradar",
	Short: "CommentRadar - collect public comments about a topic from many sources",
	Long: `CommentRadar gathers public comments, reviews and discussion posts about a
topic from several platforms, normalizes them into one record format and
accumulates them in a single JSON file without duplicates.

Records can be tagged with a coarse sentiment label, narrowed by date,
sentiment and length, collected once or on a fixed schedule, and summarized
with per-platform statistics or an optional LLM digest.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command. Cancelling ctx stops a running collection.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of CommentRadar.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "commentradar %s\n", Version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.commentradar/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env files, the config file and COMMENTRADAR_* variables
func initConfig() error {
	logging.LoadEnv(nil, ".env")
	return setupViper(viper.GetViper(), cfgFile)
}

// setupViper points v at the config file and the environment. A missing
// default config file is not an error; a missing or broken explicit one is.
func setupViper(v *viper.Viper, file string) error {
	registerDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".commentradar"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Read in environment variables that match COMMENTRADAR_*
	v.SetEnvPrefix("COMMENTRADAR")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && file == "" {
			return nil
		}
		return configError(fmt.Errorf("read config: %w", err))
	}
	if v.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}
	return nil
}
