package rank

import (
	"fmt"
	"math"
)

// DefaultThreshold is the per-page change below which IterateRank considers
// the ranks settled.
const DefaultThreshold = 0.001

// DanglingPolicy selects how IterateRank treats pages without outbound links.
type DanglingPolicy int

const (
	// DanglingIgnore leaves dangling pages out of the inbound sums. Their rank
	// is not passed on, so the result can sum to less than 1 and differs from
	// what SampleRank converges to on graphs with dangling pages.
	DanglingIgnore DanglingPolicy = iota

	// DanglingUniform spreads the rank of dangling pages evenly over every
	// page, matching the transition model used by SampleRank.
	DanglingUniform
)

// String returns the policy name used in configuration files and flags.
func (p DanglingPolicy) String() string {
	switch p {
	case DanglingIgnore:
		return "ignore"
	case DanglingUniform:
		return "uniform"
	default:
		return fmt.Sprintf("DanglingPolicy(%d)", int(p))
	}
}

// ParseDanglingPolicy converts "ignore" or "uniform" to a DanglingPolicy.
func ParseDanglingPolicy(s string) (DanglingPolicy, error) {
	switch s {
	case "ignore":
		return DanglingIgnore, nil
	case "uniform":
		return DanglingUniform, nil
	default:
		return 0, fmt.Errorf("%w: unknown dangling policy %q (want ignore or uniform)", ErrInvalidArgument, s)
	}
}

// iterateConfig holds the tunables of IterateRank.
type iterateConfig struct {
	threshold     float64
	maxIterations int
	dangling      DanglingPolicy
}

// IterateOption configures IterateRank.
type IterateOption func(*iterateConfig)

// WithThreshold sets the convergence threshold. The iteration stops once
// no page moved by threshold or more since the previous sweep.
func WithThreshold(threshold float64) IterateOption {
	return func(c *iterateConfig) {
		c.threshold = threshold
	}
}

// WithMaxIterations caps the number of sweeps. Zero means no cap.
func WithMaxIterations(n int) IterateOption {
	return func(c *iterateConfig) {
		c.maxIterations = n
	}
}

// WithDanglingPolicy selects how dangling pages are handled.
// The default is DanglingIgnore.
func WithDanglingPolicy(p DanglingPolicy) IterateOption {
	return func(c *iterateConfig) {
		c.dangling = p
	}
}

// IterateResult is the outcome of IterateRankWithStats.
type IterateResult struct {
	// Ranks is the converged rank vector.
	Ranks RankVector

	// Iterations is the number of full sweeps performed.
	Iterations int

	// Delta is the largest per-page change observed in the last sweep.
	Delta float64
}

// IterateRank estimates PageRank by repeatedly applying
//
//	PR(p) = (1-d)/N + d * Σ PR(i)/L(i)
//
// where the sum runs over every page i linking to p and L(i) is the number of
// links on i. Every page starts at 1/N. Each sweep computes all new values
// from the previous sweep's values; the loop ends when every page changed by
// less than the threshold, and the last sweep is returned.
//
// The result is deterministic for a given graph and options.
func IterateRank(g *Graph, damping float64, opts ...IterateOption) (RankVector, error) {
	res, err := IterateRankWithStats(g, damping, opts...)
	if err != nil {
		return nil, err
	}
	return res.Ranks, nil
}

// IterateRankWithStats is IterateRank that also reports how many sweeps
// were needed.
func IterateRankWithStats(g *Graph, damping float64, opts ...IterateOption) (*IterateResult, error) {
	if err := validate(g, damping); err != nil {
		return nil, err
	}

	cfg := iterateConfig{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !(cfg.threshold > 0) || math.IsInf(cfg.threshold, 1) {
		return nil, fmt.Errorf("%w: threshold %v must be a positive finite number", ErrInvalidArgument, cfg.threshold)
	}
	if cfg.maxIterations < 0 {
		return nil, fmt.Errorf("%w: max iterations %d must not be negative", ErrInvalidArgument, cfg.maxIterations)
	}
	if cfg.dangling != DanglingIgnore && cfg.dangling != DanglingUniform {
		return nil, fmt.Errorf("%w: unknown dangling policy %v", ErrInvalidArgument, cfg.dangling)
	}

	n := len(g.pages)
	base := (1 - damping) / float64(n)

	ranks := make([]float64, n)
	for i := range ranks {
		ranks[i] = 1 / float64(n)
	}
	next := make([]float64, n)

	for iteration := 1; ; iteration++ {
		leaked := 0.0
		if cfg.dangling == DanglingUniform {
			for i, targets := range g.out {
				if len(targets) == 0 {
					leaked += ranks[i]
				}
			}
			leaked = damping * leaked / float64(n)
		}

		delta := 0.0
		for p := range n {
			sum := 0.0
			for _, i := range g.in[p] {
				sum += ranks[i] / float64(len(g.out[i]))
			}
			next[p] = base + damping*sum + leaked
			delta = max(delta, math.Abs(next[p]-ranks[p]))
		}

		if delta < cfg.threshold {
			return &IterateResult{
				Ranks:      g.distribution(next),
				Iterations: iteration,
				Delta:      delta,
			}, nil
		}
		if cfg.maxIterations > 0 && iteration >= cfg.maxIterations {
			return nil, fmt.Errorf("%w after %d iterations (last change %g, threshold %g)",
				ErrNotConverged, iteration, delta, cfg.threshold)
		}

		ranks, next = next, ranks
	}
}
