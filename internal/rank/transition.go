package rank

import "fmt"

// Transition returns the probability distribution over the next page a
// random surfer visits when it is currently on page.
//
// With probability damping the surfer follows one of the page's links chosen
// uniformly; with probability 1-damping it jumps to any page of the graph.
// A page without links is treated as linking to every page, so each page
// receives exactly 1/N.
func Transition(g *Graph, page Page, damping float64) (Distribution, error) {
	if err := validate(g, damping); err != nil {
		return nil, err
	}
	i, ok := g.index[page]
	if !ok {
		return nil, fmt.Errorf("%w: page %q is not in the graph", ErrInvalidArgument, page)
	}

	weights := make([]float64, g.Len())
	g.transitionWeights(i, damping, weights)
	return g.distribution(weights), nil
}

// transitionWeights writes the transition distribution from the page at
// index from into weights, which must have length g.Len().
func (g *Graph) transitionWeights(from int, damping float64, weights []float64) {
	n := float64(len(g.pages))
	links := g.out[from]

	if len(links) == 0 {
		uniform := 1 / n
		for i := range weights {
			weights[i] = uniform
		}
		return
	}

	jump := (1 - damping) / n
	for i := range weights {
		weights[i] = jump
	}
	follow := damping / float64(len(links))
	for _, j := range links {
		weights[j] += follow
	}
}

// validate checks the arguments shared by every estimator.
func validate(g *Graph, damping float64) error {
	if g.Len() == 0 {
		return fmt.Errorf("%w: graph has no pages", ErrInvalidArgument)
	}
	// The negated form also rejects NaN.
	if !(damping > 0 && damping < 1) {
		return fmt.Errorf("%w: damping factor %v is outside (0, 1)", ErrInvalidArgument, damping)
	}
	return nil
}
