package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/pagerank/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, report *model.RankReport) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, report *model.RankReport) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, report)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestReport() *model.RankReport {
	return model.NewRankReport("corpus0", model.SourceDirectory)
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected a default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "test-step"})
		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

		expected := []string{"first", "second", "third"}
		names := p.StepNames()
		if len(names) != len(expected) {
			t.Fatalf("expected %d names, got %v", len(expected), names)
		}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		executionOrder := make([]string, 0)
		record := func(name string) *mockStep {
			return &mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *model.RankReport) error {
					executionOrder = append(executionOrder, name)
					return nil
				},
			}
		}

		p := New()
		p.AddSteps(record("load"), record("sample"))

		report := newTestReport()
		if err := p.Execute(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(executionOrder) != 2 || executionOrder[0] != "load" || executionOrder[1] != "sample" {
			t.Errorf("wrong execution order: %v", executionOrder)
		}
		if len(report.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %v", report.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.RankReport) error {
				return expectedErr
			},
		})
		p.AddStep(second)

		report := newTestReport()
		err := p.Execute(context.Background(), report)
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if !errors.Is(report.Error, expectedErr) || report.ErrorMessage != "step failed" {
			t.Errorf("expected error to be recorded, got %v / %q", report.Error, report.ErrorMessage)
		}
		if len(report.PerformedSteps) != 0 {
			t.Errorf("expected no performed steps, got %v", report.PerformedSteps)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "should-run"}

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *model.RankReport) error {
				return errors.New("step failed")
			},
		})
		p.AddStep(second)

		report := newTestReport()
		if err := p.Execute(context.Background(), report); err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if second.callCount != 1 {
			t.Error("second step should have been called")
		}
		if !report.Failed() {
			t.Error("expected the report to be marked as failed")
		}
		if len(report.PerformedSteps) != 1 || report.PerformedSteps[0] != "should-run" {
			t.Errorf("expected only the successful step, got %v", report.PerformedSteps)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New()
		p.AddStep(step)

		report := newTestReport()
		err := p.Execute(ctx, report)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
		if !errors.Is(report.Error, context.Canceled) {
			t.Errorf("expected cancellation to be recorded, got %v", report.Error)
		}
	})

	t.Run("keeps the first error", func(t *testing.T) {
		t.Parallel()

		first := errors.New("first")
		p := New(WithContinueOnError(true))
		for _, err := range []error{first, errors.New("second")} {
			p.AddStep(&mockStep{
				name:   err.Error(),
				doFunc: func(_ context.Context, _ *model.RankReport) error { return err },
			})
		}

		report := newTestReport()
		_ = p.Execute(context.Background(), report) //nolint:errcheck // checked via report
		if !errors.Is(report.Error, first) {
			t.Errorf("expected first error, got %v", report.Error)
		}
	})
}
