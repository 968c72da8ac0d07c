package rank

import (
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// sampleConfig holds the tunables of SampleRank.
type sampleConfig struct {
	workers int
	source  rand.Source
	seed    uint64
	seeded  bool
}

// SampleOption configures SampleRank.
type SampleOption func(*sampleConfig)

// WithWorkers shards the walk across k goroutines. Each worker starts its own
// walk on a uniformly chosen page with an independent random stream, and the
// visit counts are summed at the end. The default is a single walk.
func WithWorkers(k int) SampleOption {
	return func(c *sampleConfig) {
		c.workers = k
	}
}

// WithSeed makes the walk reproducible: the same graph, damping factor,
// sample count, worker count and seed always give the same estimate.
func WithSeed(seed uint64) SampleOption {
	return func(c *sampleConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// WithSource draws all randomness from src. With more than one worker, the
// per-worker streams are seeded from src before the walks start.
// src is used from a single goroutine only.
func WithSource(src rand.Source) SampleOption {
	return func(c *sampleConfig) {
		c.source = src
	}
}

// SampleRank estimates PageRank by running a random surfer for n steps and
// reporting how often each page was visited.
//
// The surfer starts on a uniformly random page. At each step the current page
// is counted, and the next page is drawn from Transition(g, current, damping).
// Every step increments exactly one counter, so the result sums to 1.
func SampleRank(g *Graph, damping float64, n int, opts ...SampleOption) (RankVector, error) {
	if err := validate(g, damping); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count %d must be positive", ErrInvalidArgument, n)
	}

	cfg := sampleConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		return nil, fmt.Errorf("%w: worker count %d must be positive", ErrInvalidArgument, cfg.workers)
	}

	root := cfg.source
	if root == nil {
		if cfg.seeded {
			root = rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)
		} else {
			root = rand.NewPCG(rand.Uint64(), rand.Uint64())
		}
	}

	counts := make([]int, g.Len())
	workers := min(cfg.workers, n)

	if workers == 1 {
		g.walk(root, damping, n, counts)
	} else {
		seeder := rand.New(root)
		shards := make([][]int, workers)
		sources := make([]rand.Source, workers)
		for w := range workers {
			shards[w] = make([]int, g.Len())
			sources[w] = rand.NewPCG(seeder.Uint64(), seeder.Uint64())
		}

		var eg errgroup.Group
		for w := range workers {
			steps := n / workers
			if w < n%workers {
				steps++
			}
			eg.Go(func() error {
				g.walk(sources[w], damping, steps, shards[w])
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		for _, shard := range shards {
			for i, c := range shard {
				counts[i] += c
			}
		}
	}

	weights := make([]float64, len(counts))
	for i, c := range counts {
		weights[i] = float64(c) / float64(n)
	}
	return g.distribution(weights), nil
}

// walk runs one random surfer for steps steps and adds its visits to counts.
func (g *Graph) walk(src rand.Source, damping float64, steps int, counts []int) {
	s := newSurfer(g, damping, src)
	current := s.r.IntN(len(g.pages))

	for range steps {
		counts[current]++
		current = s.step(current)
	}
}

// surfer draws the pages of one random walk. Its distribution holds the
// teleport share of every page plus the link share of the page it stands on,
// so a move only reweights the links of the page left and the page entered.
// A dangling page carries no link share and the draw is uniform.
type surfer struct {
	g       *Graph
	r       *rand.Rand
	damping float64
	jump    float64
	next    distuv.Categorical
	linked  []int
}

func newSurfer(g *Graph, damping float64, src rand.Source) *surfer {
	jump := (1 - damping) / float64(len(g.pages))
	weights := make([]float64, len(g.pages))
	for i := range weights {
		weights[i] = jump
	}
	return &surfer{
		g:       g,
		r:       rand.New(src),
		damping: damping,
		jump:    jump,
		next:    distuv.NewCategorical(weights, src),
	}
}

// standOn moves the link share to the links of the page at index from.
func (s *surfer) standOn(from int) {
	for _, j := range s.linked {
		s.next.Reweight(j, s.jump)
	}
	s.linked = s.g.out[from]
	if len(s.linked) == 0 {
		return
	}
	follow := s.jump + s.damping/float64(len(s.linked))
	for _, j := range s.linked {
		s.next.Reweight(j, follow)
	}
}

// step returns the index of the page the surfer moves to from the page at
// index from.
func (s *surfer) step(from int) int {
	s.standOn(from)
	return int(s.next.Rand())
}
