package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/pagerank/internal/config"
	"github.com/nao1215/pagerank/internal/corpus"
	"github.com/nao1215/pagerank/internal/fetch"
	"github.com/nao1215/pagerank/internal/model"
	"github.com/nao1215/pagerank/internal/rank"
)

// ErrNoGraph is returned by the estimator steps when no earlier step loaded
// a graph.
var ErrNoGraph = errors.New("no link graph loaded")

// Step names, as recorded in RankReport.PerformedSteps.
const (
	StepLoad    = "load"
	StepCrawl   = "crawl"
	StepSample  = "sample"
	StepIterate = "iterate"
)

// LoadStep reads the link graph of a local directory of HTML files.
type LoadStep struct {
	logger *slog.Logger
}

// NewLoadStep creates a LoadStep. A nil logger discards output.
func NewLoadStep(logger *slog.Logger) *LoadStep {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LoadStep{logger: logger}
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return StepLoad
}

// Do loads report.Corpus as a directory.
func (s *LoadStep) Do(_ context.Context, report *model.RankReport) error {
	g, err := corpus.LoadDir(report.Corpus)
	if err != nil {
		return err
	}
	setGraph(report, g)
	s.logger.Debug("corpus loaded",
		"corpus", report.Corpus,
		"pages", report.PageCount,
		"links", report.LinkCount,
		"fingerprint", report.Fingerprint,
	)
	return nil
}

// CrawlStep builds the link graph of a website by crawling it.
type CrawlStep struct {
	client         *http.Client
	maxDepth       int
	maxPages       int
	delay          time.Duration
	userAgent      string
	maxBodySize    int64
	ignorePatterns []string
	followPatterns []string
	logger         *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxDepth sets the maximum crawl depth.
func WithCrawlMaxDepth(depth int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxDepth = depth
	}
}

// WithCrawlMaxPages sets the maximum pages to crawl.
func WithCrawlMaxPages(maxPages int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxPages = maxPages
	}
}

// WithCrawlDelay sets the delay between requests.
func WithCrawlDelay(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.delay = d
	}
}

// WithCrawlUserAgent sets the User-Agent header for HTTP requests.
func WithCrawlUserAgent(userAgent string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.userAgent = userAgent
	}
}

// WithCrawlMaxBodySize sets the maximum response body size in bytes.
func WithCrawlMaxBodySize(maxBodySize int64) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxBodySize = maxBodySize
	}
}

// WithCrawlIgnorePatterns sets URL path patterns to skip during crawling.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns sets URL path patterns to follow during crawling.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a new crawling step using client for all requests.
func NewCrawlStep(client *http.Client, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		client:      client,
		maxDepth:    config.DefaultCrawlDepth,
		maxPages:    config.DefaultMaxPages,
		delay:       config.DefaultCrawlDelay,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return StepCrawl
}

// Do crawls report.Corpus as a start URL. When the crawl is interrupted,
// the pages fetched so far are kept in the report and the error returned.
func (s *CrawlStep) Do(ctx context.Context, report *model.RankReport) error {
	spiderOpts := []corpus.SpiderOption{
		corpus.WithMaxDepth(s.maxDepth),
		corpus.WithMaxPages(s.maxPages),
		corpus.WithDelay(s.delay),
		corpus.WithUserAgent(s.userAgent),
		corpus.WithMaxBodySize(s.maxBodySize),
		corpus.WithLogger(s.logger),
	}
	if len(s.ignorePatterns) > 0 {
		spiderOpts = append(spiderOpts, corpus.WithIgnorePatterns(s.ignorePatterns))
	}
	if len(s.followPatterns) > 0 {
		spiderOpts = append(spiderOpts, corpus.WithFollowPatterns(s.followPatterns))
	}

	spider := corpus.NewSpider(s.client, spiderOpts...)
	g, err := spider.Crawl(ctx, report.Corpus)
	if g != nil {
		setGraph(report, g)
	}

	stats := spider.Stats()
	s.logger.Info("crawl finished",
		"corpus", report.Corpus,
		"fetched", stats.PagesFetched,
		"failed", stats.PagesFailed,
		"skipped", stats.PagesSkipped,
	)
	if err != nil {
		return fmt.Errorf("crawl of %s: %w", report.Corpus, err)
	}
	return nil
}

func setGraph(report *model.RankReport, g *rank.Graph) {
	report.SetGraph(g)
	report.Fingerprint = corpus.Fingerprint(g)
}

// SampleStep runs the random surfer estimator.
type SampleStep struct {
	damping float64
	samples int
	workers int
	seed    uint64
	seeded  bool
	logger  *slog.Logger
}

// SampleStepOption configures a SampleStep.
type SampleStepOption func(*SampleStep)

// WithSampleWorkers shards the walk across n goroutines.
func WithSampleWorkers(n int) SampleStepOption {
	return func(s *SampleStep) {
		s.workers = n
	}
}

// WithSampleSeed makes the walk reproducible.
func WithSampleSeed(seed uint64) SampleStepOption {
	return func(s *SampleStep) {
		s.seed = seed
		s.seeded = true
	}
}

// WithSampleLogger sets a custom logger for the sample step.
func WithSampleLogger(logger *slog.Logger) SampleStepOption {
	return func(s *SampleStep) {
		s.logger = logger
	}
}

// NewSampleStep creates a step that takes samples random surfer steps.
func NewSampleStep(damping float64, samples int, opts ...SampleStepOption) *SampleStep {
	s := &SampleStep{
		damping: damping,
		samples: samples,
		workers: config.DefaultWorkers,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SampleStep) Name() string {
	return StepSample
}

// Do estimates the ranks of report.Graph and adds them to the report.
func (s *SampleStep) Do(_ context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}

	opts := []rank.SampleOption{rank.WithWorkers(s.workers)}
	if s.seeded {
		opts = append(opts, rank.WithSeed(s.seed))
	}

	start := time.Now()
	ranks, err := rank.SampleRank(report.Graph, s.damping, s.samples, opts...)
	if err != nil {
		return fmt.Errorf("sampling: %w", err)
	}

	report.Damping = s.damping
	report.AddResult(model.MethodResult{
		Method:   model.MethodSampling,
		Samples:  s.samples,
		Workers:  s.workers,
		Duration: time.Since(start),
		Ranks:    model.NewPageRanks(ranks),
	})
	if top, ok := ranks.Top(); ok {
		s.logger.Debug("sampling finished", "corpus", report.Corpus, "top", string(top))
	}
	return nil
}

// IterateStep runs the iterative estimator.
type IterateStep struct {
	damping       float64
	threshold     float64
	maxIterations int
	dangling      rank.DanglingPolicy
	logger        *slog.Logger
}

// IterateStepOption configures an IterateStep.
type IterateStepOption func(*IterateStep)

// WithIterateThreshold sets the convergence threshold.
func WithIterateThreshold(threshold float64) IterateStepOption {
	return func(s *IterateStep) {
		s.threshold = threshold
	}
}

// WithIterateMaxIterations caps the number of sweeps. 0 means no cap.
func WithIterateMaxIterations(n int) IterateStepOption {
	return func(s *IterateStep) {
		s.maxIterations = n
	}
}

// WithIterateDanglingPolicy selects how pages without links are treated.
func WithIterateDanglingPolicy(p rank.DanglingPolicy) IterateStepOption {
	return func(s *IterateStep) {
		s.dangling = p
	}
}

// WithIterateLogger sets a custom logger for the iterate step.
func WithIterateLogger(logger *slog.Logger) IterateStepOption {
	return func(s *IterateStep) {
		s.logger = logger
	}
}

// NewIterateStep creates an iterative estimation step.
func NewIterateStep(damping float64, opts ...IterateStepOption) *IterateStep {
	s := &IterateStep{
		damping:   damping,
		threshold: rank.DefaultThreshold,
		dangling:  rank.DanglingIgnore,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *IterateStep) Name() string {
	return StepIterate
}

// Do estimates the ranks of report.Graph and adds them to the report.
func (s *IterateStep) Do(_ context.Context, report *model.RankReport) error {
	if report.Graph == nil {
		return ErrNoGraph
	}

	start := time.Now()
	res, err := rank.IterateRankWithStats(report.Graph, s.damping,
		rank.WithThreshold(s.threshold),
		rank.WithMaxIterations(s.maxIterations),
		rank.WithDanglingPolicy(s.dangling),
	)
	if err != nil {
		return fmt.Errorf("iteration: %w", err)
	}

	report.Damping = s.damping
	report.AddResult(model.MethodResult{
		Method:         model.MethodIteration,
		Iterations:     res.Iterations,
		Threshold:      s.threshold,
		DanglingPolicy: s.dangling.String(),
		Duration:       time.Since(start),
		Ranks:          model.NewPageRanks(res.Ranks),
	})
	s.logger.Debug("iteration finished",
		"corpus", report.Corpus,
		"iterations", res.Iterations,
		"delta", res.Delta,
	)
	return nil
}

// DefaultPipeline builds the pipeline that ranks target under cfg, with the
// settings of the configuration file for target applied.
func DefaultPipeline(cfg *config.Config, target string, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	effective, cc := cfg.ForCorpus(target)

	p := New(WithLogger(logger))

	if config.IsURL(target) {
		client, err := fetch.NewClient(effective.ProxyAddress, effective.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		httpClient := client.NewHTTPClient()
		if cc.Cookie != "" || len(cc.Headers) > 0 {
			httpClient = client.HTTPClientWithConfig(cc.Cookie, cc.Headers)
		}
		p.AddStep(NewCrawlStep(httpClient,
			WithCrawlMaxDepth(effective.CrawlDepth),
			WithCrawlMaxPages(effective.MaxPages),
			WithCrawlDelay(effective.CrawlDelay),
			WithCrawlUserAgent(effective.UserAgent),
			WithCrawlMaxBodySize(effective.MaxBodySize),
			WithCrawlIgnorePatterns(cc.IgnorePatterns),
			WithCrawlFollowPatterns(cc.FollowPatterns),
			WithCrawlLogger(logger),
		))
	} else {
		p.AddStep(NewLoadStep(logger))
	}

	if effective.Method.Samples() {
		opts := []SampleStepOption{
			WithSampleWorkers(effective.Workers),
			WithSampleLogger(logger),
		}
		if effective.UseSeed {
			opts = append(opts, WithSampleSeed(effective.Seed))
		}
		p.AddStep(NewSampleStep(effective.Damping, effective.Samples, opts...))
	}
	if effective.Method.Iterates() {
		p.AddStep(NewIterateStep(effective.Damping,
			WithIterateThreshold(effective.Threshold),
			WithIterateMaxIterations(effective.MaxIterations),
			WithIterateDanglingPolicy(effective.DanglingPolicy),
			WithIterateLogger(logger),
		))
	}
	return p, nil
}
