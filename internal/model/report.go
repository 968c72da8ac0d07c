package model

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/pagerank/internal/rank"
)

// Method names an estimator in reports and in the database.
type Method string

const (
	// MethodSampling is the random surfer estimator.
	MethodSampling Method = "sampling"

	// MethodIteration is the fixed-point estimator.
	MethodIteration Method = "iteration"
)

// SourceType tells how a corpus was loaded.
type SourceType string

const (
	// SourceDirectory is a local directory of HTML files.
	SourceDirectory SourceType = "directory"

	// SourceWeb is a crawled website.
	SourceWeb SourceType = "web"
)

// RankReport is the result of ranking one corpus.
type RankReport struct {
	// ID identifies the run. It is a random UUID.
	ID string `json:"id"`

	// Corpus is the directory path or URL that was ranked.
	Corpus string `json:"corpus"`

	// Source tells how the corpus was loaded.
	Source SourceType `json:"source"`

	// Fingerprint is a digest of the link structure, equal for identical graphs.
	Fingerprint string `json:"fingerprint,omitempty"`

	// DateRanked is when the run started.
	DateRanked time.Time `json:"date_ranked"`

	// PageCount, LinkCount and DanglingCount describe the graph.
	PageCount     int `json:"page_count"`
	LinkCount     int `json:"link_count"`
	DanglingCount int `json:"dangling_count"`

	// Damping is the damping factor used by every estimator of the run.
	Damping float64 `json:"damping"`

	// Results holds one entry per estimator, in the order they ran.
	Results []MethodResult `json:"results"`

	// PerformedSteps lists the pipeline steps that completed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the first error of the run, if any.
	Error error `json:"-"`

	// ErrorMessage is Error as text, for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional

	// Graph is the loaded link graph. It is not serialized.
	Graph *rank.Graph `json:"-"`
}

// MethodResult is the output of one estimator.
type MethodResult struct {
	// Method is the estimator that produced the ranks.
	Method Method `json:"method"`

	// Samples and Workers are set for sampling runs.
	Samples int `json:"samples,omitempty"`
	Workers int `json:"workers,omitempty"`

	// Iterations, Threshold and DanglingPolicy are set for iteration runs.
	Iterations     int     `json:"iterations,omitempty"`
	Threshold      float64 `json:"threshold,omitempty"`
	DanglingPolicy string  `json:"dangling_policy,omitempty"`

	// Duration is how long the estimator ran.
	Duration time.Duration `json:"duration_ns"`

	// Ranks are ordered by page name.
	Ranks []PageRank `json:"ranks"`
}

// PageRank is the estimated rank of one page.
type PageRank struct {
	Page string  `json:"page"`
	Rank float64 `json:"rank"`
}

// NewRankReport creates a report for corpus with a fresh ID.
func NewRankReport(corpus string, source SourceType) *RankReport {
	return &RankReport{
		ID:         uuid.NewString(),
		Corpus:     corpus,
		Source:     source,
		DateRanked: time.Now(),
		Results:    make([]MethodResult, 0, 2),
	}
}

// SetGraph stores g and its summary counts.
func (r *RankReport) SetGraph(g *rank.Graph) {
	r.Graph = g
	r.PageCount = g.Len()
	r.LinkCount = g.LinkCount()
	r.DanglingCount = len(g.Dangling())
}

// AddResult appends a result, replacing an earlier result of the same method.
func (r *RankReport) AddResult(result MethodResult) {
	for i := range r.Results {
		if r.Results[i].Method == result.Method {
			r.Results[i] = result
			return
		}
	}
	r.Results = append(r.Results, result)
}

// Result returns the result of method, if that estimator ran.
func (r *RankReport) Result(method Method) (*MethodResult, bool) {
	for i := range r.Results {
		if r.Results[i].Method == method {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// SetError records err as the run's error. Only the first error is kept.
func (r *RankReport) SetError(err error) {
	if err == nil || r.Error != nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Failed reports whether the run recorded an error.
func (r *RankReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// NewPageRanks converts a rank vector to a slice ordered by page name.
func NewPageRanks(v rank.RankVector) []PageRank {
	ranks := make([]PageRank, 0, len(v))
	for _, p := range v.Pages() {
		ranks = append(ranks, PageRank{Page: string(p), Rank: v[p]})
	}
	return ranks
}

// RankOf returns the rank of page, or false if the page is not in the result.
func (m *MethodResult) RankOf(page string) (float64, bool) {
	i, found := slices.BinarySearchFunc(m.Ranks, page, func(pr PageRank, target string) int {
		return cmp.Compare(pr.Page, target)
	})
	if !found {
		return 0, false
	}
	return m.Ranks[i].Rank, true
}

// Top returns the n highest ranked pages, highest first. Ties are broken by
// page name. A non-positive n returns every page.
func (m *MethodResult) Top(n int) []PageRank {
	sorted := slices.Clone(m.Ranks)
	slices.SortStableFunc(sorted, func(a, b PageRank) int {
		if c := cmp.Compare(b.Rank, a.Rank); c != 0 {
			return c
		}
		return cmp.Compare(a.Page, b.Page)
	})
	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Total returns the sum of all ranks.
func (m *MethodResult) Total() float64 {
	total := 0.0
	for _, pr := range m.Ranks {
		total += pr.Rank
	}
	return total
}
