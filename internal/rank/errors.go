package rank

import "errors"

var (
	// ErrInvalidArgument is returned when a caller passes an empty graph, a
	// damping factor outside (0, 1), a non-positive sample count, or an
	// option value that cannot be honoured. Every validation error wraps it.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotConverged is returned by IterateRank when a maximum iteration
	// count was configured and the ranks were still moving when it was hit.
	ErrNotConverged = errors.New("pagerank did not converge")
)
