package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/pagerank/internal/model"
)

// pieSlices is the number of pages shown individually in the pie chart.
// The remaining pages are merged into one slice.
const pieSlices = 8

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RankReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeStatus(md, report)
	for _, res := range report.Results {
		w.writeResult(md, res)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RankReport) {
	md.H1("PageRank Report")
	md.PlainText("")

	rows := [][]string{
		{"Corpus", "`" + report.Corpus + "`"},
		{"Source", string(report.Source)},
		{"Ranked", report.DateRanked.Format("2006-01-02 15:04:05 MST")},
		{"Pages", strconv.Itoa(report.PageCount)},
		{"Links", strconv.Itoa(report.LinkCount)},
		{"Pages without links", strconv.Itoa(report.DanglingCount)},
	}
	if report.Damping != 0 {
		rows = append(rows, []string{"Damping", strconv.FormatFloat(report.Damping, 'g', -1, 64)})
	}
	if report.Fingerprint != "" {
		rows = append(rows, []string{"Fingerprint", "`" + report.Fingerprint + "`"})
	}
	rows = append(rows, []string{"Run ID", "`" + report.ID + "`"})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStatus(md *markdown.Markdown, report *model.RankReport) {
	switch {
	case report.Failed():
		md.Cautionf("Ranking failed: %s", report.ErrorMessage)
	case report.DanglingCount > 0:
		md.Note(fmt.Sprintf("%d page(s) have no links. The iterative estimator may not sum to 1 unless the uniform dangling policy is used.",
			report.DanglingCount))
	default:
		md.Tip("Every page links to at least one other page.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResult(md *markdown.Markdown, res model.MethodResult) {
	md.H2(methodTitle(res.Method))
	md.PlainText("")

	switch res.Method {
	case model.MethodSampling:
		md.PlainTextf("%d samples across %d worker(s) in %s.", res.Samples, res.Workers, res.Duration)
	case model.MethodIteration:
		md.PlainTextf("Converged after %d iteration(s) with threshold %g and dangling policy `%s` in %s.",
			res.Iterations, res.Threshold, res.DanglingPolicy, res.Duration)
	}
	md.PlainText("")

	rows := make([][]string, len(res.Ranks))
	for i, pr := range res.Ranks {
		rows[i] = []string{pr.Page, strconv.FormatFloat(pr.Rank, 'f', 4, 64)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Page", "Rank"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(res.Ranks) > 1 {
		w.writePieChart(md, res)
	}
}

// writePieChart charts the share of the highest ranked pages. Values are in
// basis points because the chart takes integers.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, res model.MethodResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(methodTitle(res.Method)+" Rank Distribution"),
		piechart.WithShowData(true),
	)

	top := res.Top(pieSlices)
	shown := 0.0
	for _, pr := range top {
		chart.LabelAndIntValue(pr.Page, basisPoints(pr.Rank))
		shown += pr.Rank
	}
	if rest := len(res.Ranks) - len(top); rest > 0 {
		chart.LabelAndIntValue("other ("+strconv.Itoa(rest)+" pages)", basisPoints(res.Total()-shown))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func basisPoints(rank float64) uint64 {
	if rank <= 0 {
		return 0
	}
	return uint64(math.Round(rank * 10000))
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pagerank](https://github.com/nao1215/pagerank)*")
}
