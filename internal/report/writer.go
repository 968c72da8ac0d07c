package report

import (
	"fmt"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/pagerank/internal/model"
)

// Writer writes a ranking report.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(report *model.RankReport) (int, error)
}

// Format names an output format.
type Format string

const (
	// FormatText is the plain listing of ranks.
	FormatText Format = "text"
	// FormatJSON is the full report as JSON.
	FormatJSON Format = "json"
	// FormatMarkdown is a Markdown document.
	FormatMarkdown Format = "markdown"
)

// NewWriter returns the writer for format. version is embedded in JSON
// output and verbose enables the details of the text format.
func NewWriter(output io.Writer, format Format, version string, verbose bool) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output, WithVerbose(verbose)), nil
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// MultiWriter writes to multiple Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all Writers and stops at the first error.
func (m *MultiWriter) Write(report *model.RankReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// methodTitle returns the heading form of a method name, e.g. "Sampling".
// A Caser keeps state, so each call gets its own.
func methodTitle(m model.Method) string {
	return cases.Title(language.English).String(string(m))
}
