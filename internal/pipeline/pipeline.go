package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/pagerank/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the report
// filled in by the previous steps.
type Step interface {
	// Do executes the step. Returning an error marks the run as failed.
	Do(ctx context.Context, report *model.RankReport) error

	// Name returns the step's name for logging and for the report.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing after a failed step.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The first error is still recorded in the report.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence. Cancellation is checked before each
// step; a running step is expected to watch ctx itself.
//
// It returns the first error unless continueOnError is set. Either way
// the error is recorded in report.
func (p *Pipeline) Execute(ctx context.Context, report *model.RankReport) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"corpus", report.Corpus,
				"reason", ctx.Err(),
			)
			report.SetError(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"corpus", report.Corpus,
		)
		start := time.Now()

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"corpus", report.Corpus,
				"error", err,
			)
			report.SetError(err)
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"corpus", report.Corpus,
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}
	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
