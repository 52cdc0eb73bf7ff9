package cli

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentradar/internal/cache"
	"github.com/ppiankov/commentradar/internal/fetch"
	"github.com/ppiankov/commentradar/internal/filter"
	"github.com/ppiankov/commentradar/internal/logging"
	"github.com/ppiankov/commentradar/internal/metrics"
	"github.com/ppiankov/commentradar/internal/model"
	"github.com/ppiankov/commentradar/internal/pipeline"
	"github.com/ppiankov/commentradar/internal/sources"
	"github.com/ppiankov/commentradar/internal/store"
	"github.com/ppiankov/commentradar/internal/worker"
)

// collectFlags are the collection flags shared by collect, schedule and batch.
// Only flags set on the command line override the configuration.
type collectFlags struct {
	platforms        []string
	limit            int
	output           string
	startDate        string
	endDate          string
	sentiment        string
	minLength        int
	maxLength        int
	analyzeSentiment bool
	overwrite        bool
	concurrency      int
	pause            time.Duration
	noCache          bool
	userAgent        string
}

func (f *collectFlags) register(cmd *cobra.Command, withOutput bool) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.platforms, "platforms", "p", nil, "platforms to query (comma separated tags or \"all\")")
	flags.IntVarP(&f.limit, "limit", "l", 0, "maximum records per source (0 = no limit)")
	if withOutput {
		flags.StringVarP(&f.output, "output", "o", "", "store file (default from config: comments.json)")
	}
	flags.StringVar(&f.startDate, "start-date", "", "keep records posted on or after this ISO-8601 date")
	flags.StringVar(&f.endDate, "end-date", "", "keep records posted on or before this ISO-8601 date")
	flags.StringVar(&f.sentiment, "sentiment", "", "keep records with this sentiment (positive, negative, neutral)")
	flags.IntVar(&f.minLength, "min-length", 0, "minimum text length in characters")
	flags.IntVar(&f.maxLength, "max-length", 0, "maximum text length in characters")
	flags.BoolVar(&f.analyzeSentiment, "analyze-sentiment", false, "tag records with a sentiment label")
	flags.BoolVar(&f.overwrite, "overwrite", false, "replace the store instead of merging into it")
	flags.IntVar(&f.concurrency, "concurrency", 0, "sources queried in parallel (1 = sequential)")
	flags.DurationVar(&f.pause, "pause", 0, "pause between sources when sequential")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable the response cache")
	flags.StringVar(&f.userAgent, "ua", "", "HTTP User-Agent")
}

// apply copies the flags the user set onto cfg
func (f *collectFlags) apply(cmd *cobra.Command, cfg *model.Config) {
	changed := cmd.Flags().Changed

	if changed("platforms") {
		cfg.Collection.Platforms = f.platforms
	}
	if changed("limit") {
		cfg.Collection.LimitPerSource = f.limit
	}
	if changed("output") {
		cfg.Store.Path = f.output
	}
	if changed("start-date") {
		cfg.Filter.StartDate = f.startDate
	}
	if changed("end-date") {
		cfg.Filter.EndDate = f.endDate
	}
	if changed("sentiment") {
		cfg.Filter.Sentiment = f.sentiment
	}
	if changed("min-length") {
		cfg.Filter.MinLength = f.minLength
	}
	if changed("max-length") {
		cfg.Filter.MaxLength = f.maxLength
	}
	if changed("analyze-sentiment") {
		cfg.Schedule.AnalyzeSentiment = f.analyzeSentiment
	}
	if changed("overwrite") {
		cfg.Store.Overwrite = f.overwrite
	}
	if changed("concurrency") {
		cfg.Collection.Concurrency = f.concurrency
	}
	if changed("pause") {
		cfg.Collection.Pause = f.pause
	}
	if changed("no-cache") {
		cfg.Cache.Enabled = !f.noCache
	}
	if changed("ua") {
		cfg.HTTP.UserAgent = f.userAgent
	}

	// the sentiment filter needs labels to match against
	if cfg.Filter.Sentiment != "" {
		cfg.Schedule.AnalyzeSentiment = true
	}
}

// resolveConfig loads the configuration, applies the command's flags and
// validates the result. Every error is a configuration error.
func resolveConfig(cmd *cobra.Command, flags *collectFlags) (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if flags != nil {
		flags.apply(cmd, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, configError(err)
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) *logrus.Logger {
	return logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
}

// newFetcher builds the shared transport: rate limiter, cache, retries, robots
func newFetcher(cfg *model.Config, log logrus.FieldLogger) *fetch.Fetcher {
	return fetch.NewFetcher(fetch.Options{
		HTTP:    cfg.HTTP,
		Retry:   cfg.Retry,
		Limiter: worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Cache:   cache.New(cfg.Cache),
		TTL:     cfg.Cache.TTL,
		Logger:  log,
	})
}

// newPipeline wires the selected adapters, the store and the filters
func newPipeline(cfg *model.Config, log logrus.FieldLogger, m *metrics.Collector) (*pipeline.Pipeline, error) {
	platforms, err := cfg.ResolvePlatforms()
	if err != nil {
		return nil, configError(err)
	}

	registry := sources.NewDefaultRegistry(newFetcher(cfg, log), cfg.Collection, log)
	adapters, err := registry.Resolve(platforms)
	if err != nil {
		return nil, configError(err)
	}

	orchestrator := pipeline.NewOrchestrator(adapters, pipeline.OrchestratorOptions{
		LimitPerSource: cfg.Collection.LimitPerSource,
		Pause:          cfg.Collection.Pause,
		Concurrency:    cfg.Collection.Concurrency,
		Metrics:        m,
		Logger:         log,
	})

	return pipeline.New(orchestrator, store.New(cfg.Store.Path, log), pipeline.Options{
		Filter:           filter.OptionsFromConfig(cfg.Filter),
		AnalyzeSentiment: cfg.Schedule.AnalyzeSentiment,
		Overwrite:        cfg.Store.Overwrite,
		Metrics:          m,
		Logger:           log,
	}), nil
}
