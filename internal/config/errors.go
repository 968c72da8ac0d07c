package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// LoadConfigFile. Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when no corpus is given.
	ErrNoTarget = errors.New("no target specified: provide a corpus directory or URL")

	// ErrInvalidDamping is returned when the damping factor is not strictly
	// between 0 and 1.
	ErrInvalidDamping = errors.New("invalid damping factor: must be greater than 0 and less than 1")

	// ErrInvalidSamples is returned when the sample count is not positive.
	ErrInvalidSamples = errors.New("invalid sample count: must be positive")

	// ErrInvalidWorkers is returned when the sampling worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidThreshold is returned when the convergence threshold is not a
	// positive finite number.
	ErrInvalidThreshold = errors.New("invalid threshold: must be positive")

	// ErrInvalidMaxIterations is returned when the iteration cap is negative.
	ErrInvalidMaxIterations = errors.New("invalid max iterations: must be non-negative")

	// ErrInvalidMethod is returned for an unknown estimator selection.
	ErrInvalidMethod = errors.New("invalid method: must be sample, iterate or both")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDepth is returned when the crawl depth is negative.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidCorpusConfig is returned when a corpus entry of the
	// configuration file holds an out-of-range value.
	ErrInvalidCorpusConfig = errors.New("invalid corpus configuration")
)
