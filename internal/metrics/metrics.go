package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/pagerank/internal/model"
)

const namespace = "pagerank"

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder holds the metrics of one process. Each Recorder has its own
// registry, so tests and concurrent commands never share counters.
type Recorder struct {
	registry *prometheus.Registry

	runs             *prometheus.CounterVec
	estimateDuration *prometheus.HistogramVec
	iterations       *prometheus.GaugeVec
	samples          *prometheus.CounterVec
	pages            *prometheus.GaugeVec
	links            *prometheus.GaugeVec
	dangling         *prometheus.GaugeVec
	lastRun          *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Number of ranking runs by source and status.",
			},
			[]string{"source", "status"},
		),
		estimateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "estimate_duration_seconds",
				Help:      "Time spent in each estimator.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method"},
		),
		iterations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "iterations",
				Help:      "Sweeps needed by the iterative estimator in the last run of a corpus.",
			},
			[]string{"corpus"},
		),
		samples: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_total",
				Help:      "Random surfer steps taken.",
			},
			[]string{"corpus"},
		),
		pages: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_pages",
				Help:      "Pages in the link graph of a corpus.",
			},
			[]string{"corpus"},
		),
		links: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_links",
				Help:      "Links in the link graph of a corpus.",
			},
			[]string{"corpus"},
		),
		dangling: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_dangling_pages",
				Help:      "Pages without outgoing links in the link graph of a corpus.",
			},
			[]string{"corpus"},
		),
		lastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last run of a corpus.",
			},
			[]string{"corpus"},
		),
	}
}

// Registry returns the registry the metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun records a finished run. It is safe for concurrent use.
func (r *Recorder) ObserveRun(report *model.RankReport) {
	status := StatusSuccess
	if report.Failed() {
		status = StatusFailure
	}
	r.runs.WithLabelValues(string(report.Source), status).Inc()
	r.lastRun.WithLabelValues(report.Corpus).Set(float64(report.DateRanked.Unix()))

	if report.PageCount == 0 {
		return
	}
	r.pages.WithLabelValues(report.Corpus).Set(float64(report.PageCount))
	r.links.WithLabelValues(report.Corpus).Set(float64(report.LinkCount))
	r.dangling.WithLabelValues(report.Corpus).Set(float64(report.DanglingCount))

	for _, res := range report.Results {
		r.estimateDuration.WithLabelValues(string(res.Method)).Observe(res.Duration.Seconds())
		switch res.Method {
		case model.MethodSampling:
			r.samples.WithLabelValues(report.Corpus).Add(float64(res.Samples))
		case model.MethodIteration:
			r.iterations.WithLabelValues(report.Corpus).Set(float64(res.Iterations))
		}
	}
}

// WriteTextfile writes all metrics to path. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
