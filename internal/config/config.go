package config

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/pagerank/internal/rank"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pagerank"

	// DefaultDamping is the probability that the random surfer follows a link
	// instead of jumping to a random page.
	DefaultDamping = 0.85

	// DefaultSamples is the number of random surfer steps taken by the
	// sampling estimator.
	DefaultSamples = 10000

	// DefaultWorkers is the number of goroutines the sampling estimator
	// shards its walk across. One worker gives a single uninterrupted walk.
	DefaultWorkers = 1

	// DefaultThreshold is the per-page change below which the iterative
	// estimator stops.
	DefaultThreshold = rank.DefaultThreshold

	// DefaultTimeout bounds each HTTP request of a web crawl.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth is how many links away from the start page a web
	// crawl goes.
	DefaultCrawlDepth = 5

	// DefaultMaxPages caps the number of pages fetched per web corpus.
	DefaultMaxPages = 100

	// DefaultBatchSize is the number of corpora ranked concurrently.
	DefaultBatchSize = 4

	// DefaultCrawlDelay is the pause between requests of a web crawl.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "pagerank/1.0 (+https://github.com/nao1215/pagerank)"

	// DefaultMaxBodySize limits how much of each response is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Method selects which estimators a run uses.
type Method string

const (
	// MethodSample runs only the random surfer estimator.
	MethodSample Method = "sample"
	// MethodIterate runs only the iterative estimator.
	MethodIterate Method = "iterate"
	// MethodBoth runs the sampling estimator, then the iterative one.
	MethodBoth Method = "both"
)

// Samples reports whether m includes the sampling estimator.
func (m Method) Samples() bool {
	return m == MethodSample || m == MethodBoth
}

// Iterates reports whether m includes the iterative estimator.
func (m Method) Iterates() bool {
	return m == MethodIterate || m == MethodBoth
}

// Config holds all options of a ranking run. It is populated from CLI flags
// and the configuration file and passed down explicitly.
type Config struct {
	// Targets are the corpora to rank: directories of HTML files or
	// http(s) URLs of sites to crawl.
	Targets []string

	// Method selects the estimators to run.
	Method Method

	// Damping is the damping factor, strictly between 0 and 1.
	Damping float64

	// Samples is the number of steps of the random surfer.
	Samples int

	// Workers is the number of concurrent random surfers sharing Samples.
	Workers int

	// Seed makes sampling reproducible when UseSeed is set.
	Seed    uint64
	UseSeed bool

	// Threshold is the convergence threshold of the iterative estimator.
	Threshold float64

	// MaxIterations caps the sweeps of the iterative estimator.
	// 0 means no cap.
	MaxIterations int

	// DanglingPolicy selects how the iterative estimator treats pages
	// without links.
	DanglingPolicy rank.DanglingPolicy

	// BatchSize is the number of corpora ranked concurrently.
	BatchSize int

	// Timeout bounds each HTTP request of a web crawl.
	Timeout time.Duration

	// CrawlDepth is the maximum link distance from the start page.
	// 0 means only the start page.
	CrawlDepth int

	// MaxPages caps the number of pages fetched per web corpus.
	MaxPages int

	// CrawlDelay is the pause between requests of a web crawl.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header of crawl requests.
	UserAgent string

	// MaxBodySize is the maximum number of bytes read from each response.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") for crawling.
	ProxyAddress string

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is where the report is written. Empty means stdout.
	ReportFile string

	// DBDir is the directory of the run database.
	DBDir string

	// SaveToDB stores every run in the database.
	SaveToDB bool

	// MetricsFile, when set, receives run metrics in the Prometheus text
	// exposition format.
	MetricsFile string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit configuration file. When empty,
	// FindConfigFile looks in the usual places.
	ConfigFilePath string

	// CorpusConfigs holds the per-corpus settings of the configuration file.
	CorpusConfigs *File

	// Explicit marks the settings given on the command line. ForCorpus
	// never replaces them with values of the configuration file.
	Explicit ExplicitSettings
}

// ExplicitSettings records which overridable settings the user set directly.
type ExplicitSettings struct {
	Damping  bool
	Samples  bool
	Dangling bool
	Depth    bool
	MaxPages bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Method:         MethodBoth,
		Damping:        DefaultDamping,
		Samples:        DefaultSamples,
		Workers:        DefaultWorkers,
		Threshold:      DefaultThreshold,
		DanglingPolicy: rank.DanglingIgnore,
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultTimeout,
		CrawlDepth:     DefaultCrawlDepth,
		MaxPages:       DefaultMaxPages,
		CrawlDelay:     DefaultCrawlDelay,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/pagerank on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the configuration directory, e.g. ~/.config/pagerank on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if err := validateDamping(c.Damping); err != nil {
		return err
	}
	if c.Samples <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSamples, c.Samples)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.Workers)
	}
	if !(c.Threshold > 0) || math.IsInf(c.Threshold, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Threshold)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxIterations, c.MaxIterations)
	}
	switch c.Method {
	case MethodSample, MethodIterate, MethodBoth:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMethod, c.Method)
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

func validateDamping(d float64) error {
	if !(d > 0 && d < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidDamping, d)
	}
	return nil
}

// ForCorpus returns a copy of c with the settings of the configuration file
// for target applied, together with those settings. Values left unset in
// the file, and values marked in c.Explicit, keep the values of c.
func (c *Config) ForCorpus(target string) (*Config, CorpusConfig) {
	effective := *c
	if c.CorpusConfigs == nil {
		return &effective, CorpusConfig{}
	}

	cc := c.CorpusConfigs.GetCorpusConfig(target)
	if cc.Damping != 0 && !c.Explicit.Damping {
		effective.Damping = cc.Damping
	}
	if cc.Samples != 0 && !c.Explicit.Samples {
		effective.Samples = cc.Samples
	}
	if cc.Depth != 0 && !c.Explicit.Depth {
		effective.CrawlDepth = cc.Depth
	}
	if cc.MaxPages != 0 && !c.Explicit.MaxPages {
		effective.MaxPages = cc.MaxPages
	}
	if cc.Dangling != "" && !c.Explicit.Dangling {
		// LoadConfigFile already rejected unknown names.
		if p, err := rank.ParseDanglingPolicy(cc.Dangling); err == nil {
			effective.DanglingPolicy = p
		}
	}
	return &effective, cc
}
