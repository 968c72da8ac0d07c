package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pagerank/internal/model"
)

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()
	for _, name := range []string{"list", "list-corpora", "page", "with-run-id", "since", "method", "json", "markdown"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if got := cmd.Flags().Lookup("method").DefValue; got != string(model.MethodIteration) {
		t.Errorf("expected method default %q, got %q", model.MethodIteration, got)
	}
}

// rankTwice stores two runs of env.corpus, adding 5.html before the second.
func rankTwice(t *testing.T, env testEnv) {
	t.Helper()

	if _, _, err := env.run(t, "rank", "--method", "iterate", env.corpus); err != nil {
		t.Fatalf("first run: %v", err)
	}
	writePage(t, env.corpus, "5.html", "1.html")
	writePage(t, env.corpus, "4.html", "2.html", "5.html")
	if _, _, err := env.run(t, "rank", "--method", "iterate", env.corpus); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestCompareCmd(t *testing.T) {
	t.Parallel()

	t.Run("requires a corpus", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		if _, _, err := env.run(t, "compare"); err == nil {
			t.Error("expected error without corpus")
		}
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		if _, _, err := env.run(t, "compare", "--method", "both", env.corpus); err == nil {
			t.Error("expected error for unknown method")
		}
	})

	t.Run("lists corpora", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		stdout, _, err := env.run(t, "compare", "--list-corpora")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No ranked corpora") {
			t.Errorf("expected an empty listing, got %q", stdout)
		}

		if _, _, err := env.run(t, "rank", "--method", "iterate", env.corpus); err != nil {
			t.Fatal(err)
		}
		stdout, _, err = env.run(t, "compare", "-L")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Ranked corpora (1)") || !strings.Contains(stdout, env.corpus) {
			t.Errorf("expected the corpus to be listed, got %q", stdout)
		}
	})

	t.Run("needs two runs", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		if _, _, err := env.run(t, "rank", "--method", "iterate", env.corpus); err != nil {
			t.Fatal(err)
		}
		_, _, err := env.run(t, "compare", env.corpus)
		if err == nil || !strings.Contains(err.Error(), "at least 2 runs") {
			t.Errorf("expected an error about the run count, got %v", err)
		}
	})

	t.Run("compares the latest two runs", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		rankTwice(t, env)

		stdout, _, err := env.run(t, "compare", env.corpus)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Rank Comparison: " + env.corpus + " (iteration)",
			"Link structure: CHANGED",
			"New Pages (1):",
			"[+] 5.html",
			"Largest change:",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		rankTwice(t, env)

		stdout, _, err := env.run(t, "compare", "--json", env.corpus)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal([]byte(stdout), &result); err != nil {
			t.Fatalf("failed to decode comparison: %v", err)
		}
		if result.Graph != graphChanged {
			t.Errorf("expected graph %q, got %q", graphChanged, result.Graph)
		}
		if len(result.Changes) != 4 {
			t.Errorf("expected 4 common pages, got %d", len(result.Changes))
		}
		if result.PreviousRun.PageCount != 4 || result.CurrentRun.PageCount != 5 {
			t.Errorf("expected 4 then 5 pages, got %d and %d",
				result.PreviousRun.PageCount, result.CurrentRun.PageCount)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		rankTwice(t, env)

		stdout, _, err := env.run(t, "compare", "--markdown", env.corpus)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Rank Comparison:", "## Rank Changes", "## New Pages (1)"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("lists runs and page history", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		rankTwice(t, env)

		stdout, _, err := env.run(t, "compare", "--list", env.corpus)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "(2 runs)") {
			t.Errorf("expected 2 runs, got %q", stdout)
		}

		stdout, _, err = env.run(t, "compare", "--page", "2.html", env.corpus)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Rank history of 2.html") || !strings.Contains(stdout, "(iteration, 2 runs)") {
			t.Errorf("unexpected page history %q", stdout)
		}
	})

	t.Run("unknown run id", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		rankTwice(t, env)

		_, _, err := env.run(t, "compare", "--with-run-id", "no-such-run", env.corpus)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("missing method results", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		rankTwice(t, env)

		_, _, err := env.run(t, "compare", "--method", "sampling", env.corpus)
		if err == nil || !strings.Contains(err.Error(), "no sampling results") {
			t.Errorf("expected missing results error, got %v", err)
		}
	})
}

func TestCompareReports(t *testing.T) {
	t.Parallel()

	now := time.Now()
	previous := &model.RankReport{
		ID: "prev", Corpus: "c", DateRanked: now.Add(-time.Hour), Fingerprint: "f1",
		Results: []model.MethodResult{{
			Method: model.MethodIteration,
			Ranks:  []model.PageRank{{Page: "a", Rank: 0.5}, {Page: "b", Rank: 0.3}, {Page: "c", Rank: 0.2}},
		}},
	}
	current := &model.RankReport{
		ID: "curr", Corpus: "c", DateRanked: now, Fingerprint: "f1",
		Results: []model.MethodResult{{
			Method: model.MethodIteration,
			Ranks:  []model.PageRank{{Page: "a", Rank: 0.45}, {Page: "b", Rank: 0.4}, {Page: "d", Rank: 0.15}},
		}},
	}

	result, err := compareReports(previous, current, model.MethodIteration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Graph != graphUnchanged {
		t.Errorf("expected unchanged graph, got %q", result.Graph)
	}
	if len(result.Changes) != 2 || result.Changes[0].Page != "b" || result.Changes[1].Page != "a" {
		t.Errorf("expected changes ordered by size, got %+v", result.Changes)
	}
	if diff := result.MaxChange - 0.1; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected max change 0.1, got %v", result.MaxChange)
	}
	if len(result.NewPages) != 1 || result.NewPages[0].Page != "d" {
		t.Errorf("expected d to be new, got %+v", result.NewPages)
	}
	if len(result.RemovedPages) != 1 || result.RemovedPages[0].Page != "c" {
		t.Errorf("expected c to be removed, got %+v", result.RemovedPages)
	}

	if _, err := compareReports(previous, current, model.MethodSampling); err == nil {
		t.Error("expected error for a method without results")
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta float64
		want  string
	}{
		{0.0123, "+0.0123"},
		{-0.0123, "-0.0123"},
		{0, "0.0000"},
		{-0.00001, "0.0000"},
		{0.00001, "0.0000"},
	}

	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%v) = %q, expected %q", tt.delta, got, tt.want)
		}
	}
}

func TestFormatCountDelta(t *testing.T) {
	t.Parallel()

	if got := formatCountDelta(2); got != "+2" {
		t.Errorf("expected +2, got %q", got)
	}
	if got := formatCountDelta(-1); got != "-1" {
		t.Errorf("expected -1, got %q", got)
	}
	if got := formatCountDelta(0); got != "0" {
		t.Errorf("expected 0, got %q", got)
	}
}
