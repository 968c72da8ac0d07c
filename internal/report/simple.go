package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/pagerank/internal/model"
)

// SimpleWriter outputs the plain text listing:
//
//	PageRank Results from Sampling (n = 10000)
//	  1.html: 0.2223
//
// Pages are listed by name with four decimals.
type SimpleWriter struct {
	baseWriter

	// verbose adds a summary of the corpus and of each estimator.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RankReport) (int, error) {
	var sb strings.Builder

	if w.verbose {
		w.writeHeader(&sb, report)
	}
	for _, res := range report.Results {
		w.writeResult(&sb, res)
	}
	if report.Failed() {
		fmt.Fprintf(&sb, "Error ranking %s: %s\n", report.Corpus, report.ErrorMessage)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RankReport) {
	fmt.Fprintf(sb, "Corpus:      %s (%s)\n", report.Corpus, report.Source)
	fmt.Fprintf(sb, "Ranked:      %s\n", report.DateRanked.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Pages:       %d (%d without links)\n", report.PageCount, report.DanglingCount)
	fmt.Fprintf(sb, "Links:       %d\n", report.LinkCount)
	if report.Damping != 0 {
		fmt.Fprintf(sb, "Damping:     %g\n", report.Damping)
	}
	if report.Fingerprint != "" {
		fmt.Fprintf(sb, "Fingerprint: %s\n", report.Fingerprint)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResult(sb *strings.Builder, res model.MethodResult) {
	switch res.Method {
	case model.MethodSampling:
		fmt.Fprintf(sb, "PageRank Results from %s (n = %d)\n", methodTitle(res.Method), res.Samples)
	default:
		fmt.Fprintf(sb, "PageRank Results from %s\n", methodTitle(res.Method))
	}

	for _, pr := range res.Ranks {
		fmt.Fprintf(sb, "  %s: %.4f\n", pr.Page, pr.Rank)
	}

	if w.verbose {
		switch res.Method {
		case model.MethodSampling:
			fmt.Fprintf(sb, "  (%d workers, %s)\n", res.Workers, res.Duration.Round(time.Microsecond))
		case model.MethodIteration:
			fmt.Fprintf(sb, "  (%d iterations, threshold %g, dangling %s, %s)\n",
				res.Iterations, res.Threshold, res.DanglingPolicy, res.Duration.Round(time.Microsecond))
		}
		fmt.Fprintf(sb, "  total: %.4f\n\n", res.Total())
	}
}
