package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nao1215/pagerank/internal/rank"
)

func TestNewRankReport(t *testing.T) {
	t.Parallel()

	r := NewRankReport("corpus0", SourceDirectory)
	if _, err := uuid.Parse(r.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", r.ID, err)
	}
	if r.Corpus != "corpus0" || r.Source != SourceDirectory {
		t.Errorf("unexpected report: %+v", r)
	}
	if r.DateRanked.IsZero() {
		t.Error("expected DateRanked to be set")
	}
	if other := NewRankReport("corpus0", SourceDirectory); other.ID == r.ID {
		t.Error("expected distinct IDs")
	}
}

func TestRankReportSetGraph(t *testing.T) {
	t.Parallel()

	g, err := rank.NewGraph(map[rank.Page][]rank.Page{
		"a": {"b", "c"},
		"b": {"c"},
		"c": nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRankReport("x", SourceDirectory)
	r.SetGraph(g)
	if r.PageCount != 3 || r.LinkCount != 3 || r.DanglingCount != 1 {
		t.Errorf("counts = %d/%d/%d, expected 3/3/1", r.PageCount, r.LinkCount, r.DanglingCount)
	}
	if r.Graph != g {
		t.Error("expected the graph to be kept")
	}
}

func TestRankReportResults(t *testing.T) {
	t.Parallel()

	r := NewRankReport("x", SourceDirectory)
	if _, ok := r.Result(MethodSampling); ok {
		t.Fatal("expected no result before AddResult")
	}

	r.AddResult(MethodResult{Method: MethodSampling, Samples: 10})
	r.AddResult(MethodResult{Method: MethodIteration, Iterations: 4})
	r.AddResult(MethodResult{Method: MethodSampling, Samples: 20})

	if len(r.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(r.Results))
	}
	if r.Results[0].Method != MethodSampling || r.Results[0].Samples != 20 {
		t.Errorf("expected the sampling result to be replaced in place, got %+v", r.Results[0])
	}
	res, ok := r.Result(MethodIteration)
	if !ok || res.Iterations != 4 {
		t.Errorf("Result(iteration) = %+v, %v", res, ok)
	}
}

func TestRankReportSetError(t *testing.T) {
	t.Parallel()

	r := NewRankReport("x", SourceWeb)
	r.SetError(nil)
	if r.Failed() {
		t.Fatal("nil error must not mark the run as failed")
	}

	first := errors.New("first")
	r.SetError(first)
	r.SetError(errors.New("second"))
	if !errors.Is(r.Error, first) || r.ErrorMessage != "first" {
		t.Errorf("expected the first error to win, got %v / %q", r.Error, r.ErrorMessage)
	}
	if !r.Failed() {
		t.Error("expected Failed() to be true")
	}
}

func TestMethodResultHelpers(t *testing.T) {
	t.Parallel()

	m := MethodResult{
		Method: MethodIteration,
		Ranks: NewPageRanks(rank.RankVector{
			"c.html": 0.2,
			"a.html": 0.3,
			"b.html": 0.3,
			"d.html": 0.2,
		}),
	}

	if m.Ranks[0].Page != "a.html" || m.Ranks[3].Page != "d.html" {
		t.Errorf("expected ranks ordered by page, got %v", m.Ranks)
	}

	if v, ok := m.RankOf("c.html"); !ok || v != 0.2 {
		t.Errorf("RankOf(c.html) = %v, %v", v, ok)
	}
	if _, ok := m.RankOf("z.html"); ok {
		t.Error("expected RankOf to miss an unknown page")
	}

	top := m.Top(3)
	want := []string{"a.html", "b.html", "c.html"}
	if len(top) != len(want) {
		t.Fatalf("Top(3) returned %d pages", len(top))
	}
	for i, p := range want {
		if top[i].Page != p {
			t.Errorf("Top(3)[%d] = %s, expected %s", i, top[i].Page, p)
		}
	}
	if len(m.Top(0)) != 4 {
		t.Error("Top(0) should return every page")
	}
	if m.Ranks[0].Page != "a.html" || m.Ranks[2].Page != "c.html" {
		t.Error("Top must not reorder the stored ranks")
	}

	if total := m.Total(); total < 0.999999 || total > 1.000001 {
		t.Errorf("Total() = %v, expected 1", total)
	}
}

func TestRankReportJSON(t *testing.T) {
	t.Parallel()

	g, _ := rank.NewGraph(map[rank.Page][]rank.Page{"a": {"b"}, "b": {"a"}})
	r := NewRankReport("corpus0", SourceDirectory)
	r.SetGraph(g)
	r.Damping = 0.85
	r.AddResult(MethodResult{Method: MethodIteration, Iterations: 1, Ranks: NewPageRanks(rank.RankVector{"a": 0.5, "b": 0.5})})
	r.SetError(errors.New("boom"))

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"corpus":"corpus0"`, `"page_count":2`, `"method":"iteration"`, `"error":"boom"`, `"page":"a"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, "Graph") {
		t.Errorf("graph must not be serialized: %s", out)
	}
}
