// Package rank estimates PageRank over a closed corpus of linked pages.
//
// Two independent estimators share one transition model:
//   - SampleRank walks the graph as a random surfer and reports visit frequency.
//   - IterateRank relaxes the PageRank equation until every page settles.
//
// # Transition model
//
// From a page with outbound links the surfer follows one of them with
// probability d (the damping factor) and jumps to a uniformly random page with
// probability 1-d. A page without outbound links is treated as linking to
// every page in the corpus.
//
// # Dangling pages
//
// The sampler redistributes the mass of a dangling page uniformly, because the
// transition model does. The iterative solver, by default, does not: a page
// with no links simply contributes nothing to the inbound sums, so its rank
// leaks out of the system and the result need not sum to 1. The two
// estimators therefore disagree on graphs that contain dangling pages.
// DanglingUniform folds the uniform redistribution into the iterative update
// and makes the two agree.
//
// # Usage
//
//	g, err := rank.NewGraph(map[rank.Page][]rank.Page{
//	    "1.html": {"2.html"},
//	    "2.html": {"1.html", "3.html"},
//	    "3.html": {"2.html"},
//	})
//	sampled, err := rank.SampleRank(g, 0.85, 10000, rank.WithWorkers(4))
//	iterated, err := rank.IterateRank(g, 0.85)
//
// The graph is immutable and every estimator is safe to call concurrently on
// the same graph.
package rank
