package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagerank/internal/config"
	"github.com/nao1215/pagerank/internal/database"
	"github.com/nao1215/pagerank/internal/fetch"
	applog "github.com/nao1215/pagerank/internal/log"
	"github.com/nao1215/pagerank/internal/metrics"
	"github.com/nao1215/pagerank/internal/model"
	"github.com/nao1215/pagerank/internal/pipeline"
	"github.com/nao1215/pagerank/internal/rank"
	"github.com/nao1215/pagerank/internal/report"
)

// errRunsFailed is returned when at least one corpus could not be ranked.
var errRunsFailed = errors.New("ranking failed")

// NewRankCmd creates the rank command.
func NewRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [corpus]...",
		Short: "Estimate the PageRank of one or more corpora",
		Long: `Rank loads the link graph of each corpus and estimates the PageRank of
every page.

A corpus is either a directory of HTML files, where each file is a page and
each <a href> naming another file of the directory is a link, or the URL of
a website, which is crawled first.

Two estimators are available:
- sample:  a random surfer walks the graph; ranks are visit frequencies
- iterate: ranks are recomputed until no page changes by more than the threshold

Examples:
  # Rank a directory with both estimators
  pagerank rank corpus0

  # Iterate only, treating dangling pages as linking to every page
  pagerank rank --method iterate --dangling uniform corpus0

  # Reproducible sampling on four workers
  pagerank rank --method sample --samples 100000 --workers 4 --seed 1 corpus0

  # Crawl a website and write a Markdown report
  pagerank rank --markdown -o report.md https://example.com/docs/

Configuration file (.pagerank) example:
  defaults:
    damping: 0.85
  corpora:
    corpus0:
      dangling: uniform
    example.com:
      depth: 3
      ignorePatterns: ["/private/*"]`,
		Args: cobra.ArbitraryArgs,
		RunE: runRankCmd,
	}

	// Estimator flags
	cmd.Flags().StringP("method", "M", string(config.MethodBoth),
		"Estimator to run: sample, iterate or both")
	cmd.Flags().Float64("damping", config.DefaultDamping,
		"Damping factor, strictly between 0 and 1")
	cmd.Flags().IntP("samples", "n", config.DefaultSamples,
		"Number of random surfer steps")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent random surfers")
	cmd.Flags().Uint64("seed", 0,
		"Seed of the random surfers (default: random)")
	cmd.Flags().Float64("threshold", config.DefaultThreshold,
		"Convergence threshold of the iterative estimator")
	cmd.Flags().Int("max-iterations", 0,
		"Maximum number of iterations (0: no limit)")
	cmd.Flags().String("dangling", rank.DanglingIgnore.String(),
		"Handling of pages without links: ignore or uniform")

	// Crawl flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each HTTP request")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum crawl depth")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per website")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Delay between crawl requests")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header of crawl requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum size of a crawled page in bytes")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for crawling (e.g., 127.0.0.1:1080)")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of corpora ranked concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pagerank in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not store the run in the database")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics of the runs to this file")
	cmd.Flags().String("log-format", "text",
		"Log format: text or json")

	return cmd
}

// runRankCmd executes the rank command.
func runRankCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return err
	}
	logger, err := setupLogger(cmd.ErrOrStderr(), logFormat, cfg.Verbose)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runRank(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	method, err := flags.GetString("method")
	if err != nil {
		return nil, err
	}
	cfg.Method = config.Method(method)

	if cfg.Damping, err = flags.GetFloat64("damping"); err != nil {
		return nil, err
	}
	if cfg.Samples, err = flags.GetInt("samples"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.Seed, err = flags.GetUint64("seed"); err != nil {
		return nil, err
	}
	cfg.UseSeed = flags.Changed("seed")
	if cfg.Threshold, err = flags.GetFloat64("threshold"); err != nil {
		return nil, err
	}
	if cfg.MaxIterations, err = flags.GetInt("max-iterations"); err != nil {
		return nil, err
	}

	dangling, err := flags.GetString("dangling")
	if err != nil {
		return nil, err
	}
	if cfg.DanglingPolicy, err = rank.ParseDanglingPolicy(dangling); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly given configuration file must exist. Without one, the
	// default locations are searched and a missing file is not an error.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.CorpusConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.CorpusConfigs = &config.File{
			Corpora: make(map[string]config.CorpusConfig),
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = getDBDir(cmd)

	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}

	// Flags given on the command line take precedence over the configuration file.
	cfg.Explicit = config.ExplicitSettings{
		Damping:  flags.Changed("damping"),
		Samples:  flags.Changed("samples"),
		Dangling: flags.Changed("dangling"),
		Depth:    flags.Changed("depth"),
		MaxPages: flags.Changed("max-pages"),
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates a logger that masks credentials, writing to w.
func setupLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	switch format {
	case "text", "":
		return applog.NewSecureLogger(w, verbose), nil
	case "json":
		return applog.NewSecureJSONLogger(w, verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: must be text or json", format)
	}
}

// reportFormat maps the report flags to a report format.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// runRank ranks every target and writes the reports to out, or to the
// report file when one is configured.
func runRank(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting ranking",
		"targets", cfg.Targets,
		"method", cfg.Method,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RankDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	if err := checkProxy(ctx, cfg, logger); err != nil {
		return err
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, out)
	if err != nil {
		return err
	}
	defer closeOutput()

	// Several corpora in one text listing need their headers to be told apart.
	verbose := cfg.Verbose || len(cfg.Targets) > 1
	writer, err := report.NewWriter(output, reportFormat(cfg), getVersion(), verbose)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()

	bp := pipeline.NewBatchProcessor(
		func(target string) (*pipeline.Pipeline, error) {
			return pipeline.DefaultPipeline(cfg, target, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()

	var (
		mu     sync.Mutex
		failed int
	)
	err = bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(rankReport *model.RankReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		logger.Info("ranking completed",
			"corpus", rankReport.Corpus,
			"progress", fmt.Sprintf("%d/%d", index+1, len(cfg.Targets)),
			"failed", rankReport.Failed(),
		)
		if rankReport.Failed() {
			failed++
		}

		if _, err := writer.Write(rankReport); err != nil {
			logger.Error("report failed", "corpus", rankReport.Corpus, "error", err)
		}

		recorder.ObserveRun(rankReport)

		if err := saveRankReport(ctx, db, rankReport, logger); err != nil {
			logger.Error("failed to save run", "corpus", rankReport.Corpus, "error", err)
		}
	})

	logger.Info("ranking finished",
		"targets", len(cfg.Targets),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d corpora", errRunsFailed, failed, len(cfg.Targets))
	}
	return nil
}

// checkProxy verifies the configured proxy before any website is crawled.
func checkProxy(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.ProxyAddress == "" || !hasURLTarget(cfg.Targets) {
		return nil
	}

	client, err := fetch.NewClient(cfg.ProxyAddress, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if err := client.CheckConnection(ctx); err != nil {
		return fmt.Errorf("proxy check failed (make sure a SOCKS5 proxy is running at %s): %w",
			cfg.ProxyAddress, err)
	}
	logger.Info("proxy connection verified", "proxy", client.ProxyAddress())
	return nil
}

func hasURLTarget(targets []string) bool {
	for _, target := range targets {
		if config.IsURL(target) {
			return true
		}
	}
	return false
}

// openOutput returns the report destination. A report file is created with
// owner-only permissions since crawl reports may reveal private pages.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// saveRankReport stores the run in the database, if one is open.
func saveRankReport(ctx context.Context, db *database.RankDB, rankReport *model.RankReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// The run is stored even when ranking was interrupted.
	saveCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}

	if err := db.SaveRun(saveCtx, rankReport); err != nil {
		return err
	}

	logger.Info("run saved to database",
		"corpus", rankReport.Corpus,
		"runID", rankReport.ID,
		"fingerprint", rankReport.Fingerprint,
	)
	return nil
}
