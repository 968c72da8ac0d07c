package rank

import (
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Distribution maps every page of a graph to a non-negative weight.
// A distribution produced by this package is keyed by every page of the
// graph it was computed from, including pages that received zero weight.
type Distribution map[Page]float64

// RankVector is a Distribution read as a PageRank estimate.
type RankVector = Distribution

// Pages returns the keys of d in ascending order.
func (d Distribution) Pages() []Page {
	pages := make([]Page, 0, len(d))
	for p := range d {
		pages = append(pages, p)
	}
	slices.Sort(pages)
	return pages
}

// Sum returns the total weight of d.
// Values are added in page order so the result does not depend on map
// iteration order.
func (d Distribution) Sum() float64 {
	pages := d.Pages()
	values := make([]float64, len(pages))
	for i, p := range pages {
		values[i] = d[p]
	}
	return floats.Sum(values)
}

// Top returns the page with the highest weight. Ties go to the page that
// sorts first. It returns false for an empty distribution.
func (d Distribution) Top() (Page, bool) {
	var (
		best      Page
		bestValue float64
		found     bool
	)
	for _, p := range d.Pages() {
		if !found || d[p] > bestValue {
			best, bestValue, found = p, d[p], true
		}
	}
	return best, found
}
