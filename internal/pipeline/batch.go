package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pagerank/internal/config"
	"github.com/nao1215/pagerank/internal/model"
)

// DefaultConcurrency is the number of corpora ranked at once when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// Factory builds the pipeline for one corpus.
type Factory func(target string) (*Pipeline, error)

// BatchProcessor ranks multiple corpora concurrently. Each corpus gets a
// fresh pipeline from the factory, so per-corpus settings apply.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of corpora ranked at once.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// NewReport creates the report for target, detecting whether it is a
// website or a directory.
func NewReport(target string) *model.RankReport {
	source := model.SourceDirectory
	if config.IsURL(target) {
		source = model.SourceWeb
	}
	return model.NewRankReport(target, source)
}

// Run builds the pipeline for target and executes it. The returned report
// is never nil; failures are recorded in it.
func (bp *BatchProcessor) Run(ctx context.Context, target string) *model.RankReport {
	report := NewReport(target)

	p, err := bp.factory(target)
	if err != nil {
		bp.logger.Warn("failed to build pipeline", "corpus", target, "error", err)
		report.SetError(err)
		return report
	}

	if err := p.Execute(ctx, report); err != nil {
		bp.logger.Warn("ranking failed", "corpus", target, "error", err)
		return report
	}
	bp.logger.Info("ranking completed", "corpus", target)
	return report
}

// ProcessBatch ranks every target and returns the reports in target order,
// including the reports of failed runs. The error is non-nil only when ctx
// was cancelled before every corpus started; in that case the reports of
// corpora that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.RankReport, error) {
	results := make([]*model.RankReport, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(report *model.RankReport, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback ranks every target and calls callback as each
// run finishes. The callback runs on the worker goroutine, so it must be
// safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.RankReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_corpora", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("ranking corpus",
				"corpus", target,
				"index", i+1,
				"total", len(targets),
			)
			callback(bp.Run(ctx, target), i)
			// Failures are recorded in the report and must not cancel the
			// other corpora.
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_corpora", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
