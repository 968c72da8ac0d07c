package rank

import (
	"fmt"
	"slices"
)

// Page identifies a document in the corpus, typically a file name or a URL
// path. The ranking code never looks inside it.
type Page string

// Graph is an immutable, closed link graph.
// Every link target is itself a page of the graph and no page links to itself.
//
// Pages are stored in sorted order and addressed by index internally, so
// every computation over a Graph visits pages in the same order and produces
// bit-identical floating point results from run to run.
type Graph struct {
	// pages holds every page in ascending order.
	pages []Page

	// index maps a page to its position in pages.
	index map[Page]int

	// out holds, per page index, the sorted indices of its link targets.
	out [][]int

	// in holds, per page index, the sorted indices of pages linking to it.
	in [][]int
}

// NewGraph builds a Graph from an adjacency map.
// Duplicate links collapse and link order is irrelevant. A link to a page
// that is not a key of links, or a link from a page to itself, is rejected
// with ErrInvalidArgument: the loader is responsible for dropping those.
// An empty map yields an empty graph, which the estimators refuse.
func NewGraph(links map[Page][]Page) (*Graph, error) {
	pages := make([]Page, 0, len(links))
	for p := range links {
		pages = append(pages, p)
	}
	slices.Sort(pages)

	index := make(map[Page]int, len(pages))
	for i, p := range pages {
		index[p] = i
	}

	g := &Graph{
		pages: pages,
		index: index,
		out:   make([][]int, len(pages)),
		in:    make([][]int, len(pages)),
	}

	for i, p := range pages {
		targets := make([]int, 0, len(links[p]))
		for _, target := range links[p] {
			if target == p {
				return nil, fmt.Errorf("%w: page %q links to itself", ErrInvalidArgument, p)
			}
			j, ok := index[target]
			if !ok {
				return nil, fmt.Errorf("%w: page %q links to %q which is not in the graph", ErrInvalidArgument, p, target)
			}
			targets = append(targets, j)
		}
		slices.Sort(targets)
		g.out[i] = slices.Compact(targets)
	}

	for i, targets := range g.out {
		for _, j := range targets {
			g.in[j] = append(g.in[j], i)
		}
	}

	return g, nil
}

// Len returns the number of pages in the graph.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.pages)
}

// Pages returns every page of the graph in ascending order.
func (g *Graph) Pages() []Page {
	return slices.Clone(g.pages)
}

// Has reports whether page belongs to the graph.
func (g *Graph) Has(page Page) bool {
	_, ok := g.index[page]
	return ok
}

// Links returns the outbound links of page in ascending order,
// or nil if the page is dangling or unknown.
func (g *Graph) Links(page Page) []Page {
	i, ok := g.index[page]
	if !ok || len(g.out[i]) == 0 {
		return nil
	}
	links := make([]Page, len(g.out[i]))
	for k, j := range g.out[i] {
		links[k] = g.pages[j]
	}
	return links
}

// OutDegree returns the number of outbound links of page.
func (g *Graph) OutDegree(page Page) int {
	i, ok := g.index[page]
	if !ok {
		return 0
	}
	return len(g.out[i])
}

// LinkCount returns the total number of links in the graph.
func (g *Graph) LinkCount() int {
	total := 0
	for _, targets := range g.out {
		total += len(targets)
	}
	return total
}

// Dangling returns the pages that have no outbound links, in ascending order.
func (g *Graph) Dangling() []Page {
	var dangling []Page
	for i, targets := range g.out {
		if len(targets) == 0 {
			dangling = append(dangling, g.pages[i])
		}
	}
	return dangling
}

// AdjacencyMap returns a fresh copy of the graph as an adjacency map.
func (g *Graph) AdjacencyMap() map[Page][]Page {
	m := make(map[Page][]Page, len(g.pages))
	for _, p := range g.pages {
		m[p] = g.Links(p)
	}
	return m
}

// distribution converts a weight vector indexed like g.pages into a Distribution.
func (g *Graph) distribution(weights []float64) Distribution {
	d := make(Distribution, len(g.pages))
	for i, p := range g.pages {
		d[p] = weights[i]
	}
	return d
}
