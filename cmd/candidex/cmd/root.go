// Package cmd provides the CLI commands for candidex.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/candidex/candidex/internal/config"
	"github.com/candidex/candidex/internal/corpus"
	"github.com/candidex/candidex/internal/embed"
	cerrors "github.com/candidex/candidex/internal/errors"
	"github.com/candidex/candidex/internal/lexical"
	"github.com/candidex/candidex/internal/logging"
	"github.com/candidex/candidex/internal/search"
	"github.com/candidex/candidex/internal/telemetry"
	"github.com/candidex/candidex/pkg/version"
)

var (
	configPath string
	dataDir    string
	logLevel   string
)

// NewRootCmd creates the root command for the candidex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidex",
		Short: "Hybrid candidate search over resume data",
		Long: `Candidex indexes candidate records and serves semantic, keyword,
hybrid, and weighted multi-criteria search over them.

Build a corpus from a JSON export, then query it:

  candidex build candidates.json --name engineering
  candidex search "machine learning" --name engineering
  candidex weighted --name engineering --skills "Python" --skills-weight 0.6`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("candidex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override data directory")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newWeightedCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. Failures are reported in coded form
// with an actionable suggestion where one exists.
func Execute() error {
	root := NewRootCmd()
	err := root.ExecuteContext(context.Background())
	if err == nil {
		return nil
	}

	coded := codeError(err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", coded)
	if coded.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", coded.Suggestion)
	}
	if cerrors.IsRetryable(coded) {
		fmt.Fprintln(os.Stderr, "The provider may recover; a later retry can succeed.")
	}
	slog.Debug("command failed", slog.String("code", cerrors.GetCode(coded)))
	return coded
}

// runtime bundles the wired engine with its configuration and cleanup.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *search.Engine
	cleanup func()
}

// newRuntime loads configuration and wires the full engine stack:
// Voyage embeddings behind a persistent disk cache and an in-memory
// query cache, the bleve keyword index, and the optional reranker.
func newRuntime(needRerank bool) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeConfigInvalid, err).
			WithSuggestion("fix the config file, or regenerate it with `candidex config init`")
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, logCleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		WriteToStderr: cfg.Logging.FilePath == "",
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	voyage, err := embed.NewVoyageEmbedder(embed.VoyageConfig{
		Host:      cfg.Embed.Host,
		Model:     cfg.Embed.Model,
		APIKey:    cfg.Embed.APIKey,
		BatchSize: cfg.Embed.BatchSize,
		Timeout:   cfg.Embed.Timeout.Std(),
	})
	if err != nil {
		logCleanup()
		return nil, err
	}

	diskCache, err := embed.NewDiskCache(filepath.Join(cfg.Paths.DataDir, "embeddings.db"))
	if err != nil {
		logCleanup()
		return nil, err
	}
	buildEmbedder := embed.NewDiskCached(voyage, diskCache)
	queryEmbedder := embed.NewCached(buildEmbedder, cfg.Embed.QueryCacheSize)

	builder := corpus.NewBuilder(buildEmbedder, corpus.BuilderConfig{
		BatchSize: cfg.Embed.BatchSize,
		Workers:   cfg.Build.Workers,
	}, logger)

	metrics := telemetry.NewQueryMetrics()
	opts := []search.EngineOption{
		search.WithLogger(logger),
		search.WithMetrics(metrics),
		search.WithTypePolicy(cfg.Criteria.TypesFor),
	}

	idx, err := lexical.New(filepath.Join(cfg.Paths.DataDir, "lexical.bleve"))
	if err != nil {
		// Hybrid search degrades to semantic-only without the index.
		logger.Warn("keyword index unavailable", slog.String("error", err.Error()))
	} else {
		opts = append(opts, search.WithLexical(idx))
	}

	if needRerank && cfg.Rerank.APIKey != "" {
		opts = append(opts, search.WithReranker(search.NewVoyageReranker(search.VoyageRerankerConfig{
			Host:    cfg.Rerank.Host,
			Model:   cfg.Rerank.Model,
			APIKey:  cfg.Rerank.APIKey,
			Timeout: cfg.Rerank.Timeout.Std(),
		})))
	}

	engine, err := search.NewEngine(queryEmbedder, builder, corpus.NewManager(), search.EngineConfig{
		RRFConstant:      cfg.Search.RRFConstant,
		RecallFactor:     cfg.Search.RecallFactor,
		RecallMultiplier: cfg.Search.RecallMultiplier,
		DefaultLimit:     cfg.Search.DefaultLimit,
		MaxLimit:         cfg.Search.MaxLimit,
		Timeout:          cfg.Search.Timeout.Std(),
	}, opts...)
	if err != nil {
		_ = diskCache.Close()
		logCleanup()
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		cleanup: func() {
			logQueryMetrics(logger, metrics)
			_ = engine.Close()
			_ = diskCache.Close()
			logCleanup()
		},
	}, nil
}

// logQueryMetrics emits the aggregated query counters on shutdown, so
// a one-shot CLI run still leaves its telemetry in the log.
func logQueryMetrics(logger *slog.Logger, m *telemetry.QueryMetrics) {
	if m == nil {
		return
	}
	snap := m.Snapshot()
	if snap.TotalQueries == 0 {
		return
	}
	logger.Info("query metrics",
		slog.Int64("total", snap.TotalQueries),
		slog.Int64("zero_results", snap.ZeroResults),
		slog.Int64("degraded", snap.DegradedCount),
		slog.Int64("repeats", snap.RepeatQueries),
		slog.Float64("zero_result_pct", snap.ZeroResultPercentage()))
}

// loadCorpus reads the dataset's artifact from disk.
func (r *runtime) loadCorpus(ctx context.Context, name string) (*corpus.Corpus, error) {
	path := corpus.ArtifactPath(r.cfg.Paths.DataDir, name)
	c, info, err := corpus.Load(ctx, path)
	if errors.Is(err, corpus.ErrNotBuilt) {
		return nil, err
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeCorpusCorrupt, err).
			WithSuggestion("rebuild the corpus with `candidex build`")
	}
	r.logger.Debug("corpus loaded",
		slog.String("name", name),
		slog.Int("chunks", c.Len()),
		slog.String("model", info.Model))
	r.engine.Manager().Publish(name, c)
	return c, nil
}
