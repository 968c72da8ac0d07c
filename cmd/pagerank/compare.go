package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/pagerank/internal/database"
	"github.com/nao1215/pagerank/internal/model"
)

// Change directions of a compared corpus.
const (
	graphChanged   = "changed"
	graphUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares ranking runs stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [corpus]",
		Short: "Compare ranking results with historical runs",
		Long: `Compare displays how the ranks of a corpus changed between runs.

This command retrieves stored runs from the database and shows:
- The rank of every page in both runs and the change
- Pages that appeared or disappeared
- Whether the link structure itself changed

The comparison requires at least two runs of the corpus. Use 'pagerank rank'
to rank a corpus and store the run.

Examples:
  # Compare the latest two runs of a corpus
  pagerank compare corpus0

  # List all runs of a corpus
  pagerank compare --list corpus0

  # Compare with a specific run by ID
  pagerank compare --with-run-id 2b1c... corpus0

  # Compare with the first run since a date
  pagerank compare --since "2026-01-01" corpus0

  # Show how one page's rank developed over all runs
  pagerank compare --page 1.html corpus0

  # Compare the sampling results in JSON format
  pagerank compare --method sampling --json corpus0

  # List all ranked corpora in the database
  pagerank compare --list-corpora`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List run history for the specified corpus")
	cmd.Flags().BoolP("list-corpora", "L", false,
		"List all ranked corpora in the database")
	cmd.Flags().StringP("page", "P", "",
		"Show the rank of one page across all runs")

	// Comparison target flags
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run after this date (format: YYYY-MM-DD)")
	cmd.Flags().String("method", string(model.MethodIteration),
		"Estimator whose results are compared: sampling or iteration")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listCorpora, err := cmd.Flags().GetBool("list-corpora")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var corpus string
	if !listCorpora {
		if len(args) == 0 {
			return errors.New("corpus is required (use --list-corpora to see available corpora)")
		}
		corpus = args[0]
	}

	methodName, err := cmd.Flags().GetString("method")
	if err != nil {
		return err
	}
	method := model.Method(methodName)
	if method != model.MethodSampling && method != model.MethodIteration {
		return fmt.Errorf("invalid method %q: must be sampling or iteration", methodName)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	db, err := database.Open(getDBDir(cmd), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listCorpora {
		return listRankedCorpora(ctx, out, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, out, db, corpus)
	}

	page, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}
	if page != "" {
		return showPageHistory(ctx, out, db, corpus, page, method, jsonOutput)
	}

	withRunID, err := cmd.Flags().GetString("with-run-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	result, err := runComparison(ctx, db, corpus, method, withRunID, sinceDate)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// listRankedCorpora lists every corpus that has runs in the database.
func listRankedCorpora(ctx context.Context, out io.Writer, db *database.RankDB) error {
	corpora, err := db.ListCorpora(ctx)
	if err != nil {
		return fmt.Errorf("failed to list corpora: %w", err)
	}

	if len(corpora) == 0 {
		fmt.Fprintln(out, "No ranked corpora found in the database.")
		fmt.Fprintln(out, "\nUse 'pagerank rank <corpus>' to rank a corpus.")
		return nil
	}

	fmt.Fprintf(out, "Ranked corpora (%d):\n\n", len(corpora))
	for _, corpus := range corpora {
		fmt.Fprintf(out, "  • %s\n", corpus)
	}
	fmt.Fprintln(out, "\nUse 'pagerank compare --list <corpus>' to see the runs of a corpus.")

	return nil
}

// listRunHistory lists every stored run of corpus.
func listRunHistory(ctx context.Context, out io.Writer, db *database.RankDB, corpus string) error {
	runs, err := db.RunHistory(ctx, corpus)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", corpus)
		fmt.Fprintln(out, "\nUse 'pagerank rank' to rank this corpus.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", corpus, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %6s  %s\n", "ID", "Date", "Pages", "Links", "Methods")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, meta := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %6d  %s\n",
			meta.ID,
			meta.RankedAt.Local().Format("2006-01-02 15:04:05"),
			meta.PageCount,
			meta.LinkCount,
			formatMethods(meta),
		)
	}

	fmt.Fprintln(out, "\nUse 'pagerank compare <corpus>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'pagerank compare --with-run-id <id> <corpus>' to compare with a specific run.")

	return nil
}

// formatMethods describes the estimators of a run, or its failure.
func formatMethods(meta database.RunMetadata) string {
	if meta.Error != "" {
		return "FAILED: " + meta.Error
	}
	if len(meta.Methods) == 0 {
		return "N/A"
	}
	names := make([]string, len(meta.Methods))
	for i, m := range meta.Methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// showPageHistory prints the rank of page in every run of corpus.
func showPageHistory(ctx context.Context, out io.Writer, db *database.RankDB, corpus, page string, method model.Method, jsonOutput bool) error {
	points, err := db.PageHistory(ctx, corpus, page, method)
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			Corpus string                   `json:"corpus"`
			Page   string                   `json:"page"`
			Method model.Method             `json:"method"`
			Points []database.PageRankPoint `json:"points"`
		}{corpus, page, method, points})
	}

	if len(points) == 0 {
		fmt.Fprintf(out, "No %s ranks found for %s in %s\n", method, page, corpus)
		return nil
	}

	fmt.Fprintf(out, "Rank history of %s in %s (%s, %d runs):\n\n", page, corpus, method, len(points))
	fmt.Fprintf(out, "  %-19s  %-8s  %s\n", "Date", "Rank", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 40))
	for i, point := range points {
		change := "-"
		if i > 0 {
			change = formatDelta(point.Rank - points[i-1].Rank)
		}
		fmt.Fprintf(out, "  %-19s  %-8.4f  %s\n",
			point.RankedAt.Local().Format("2006-01-02 15:04:05"), point.Rank, change)
	}
	return nil
}

// runComparison selects the two runs to compare and compares them.
func runComparison(ctx context.Context, db *database.RankDB, corpus string, method model.Method, withRunID, sinceDate string) (*ComparisonResult, error) {
	runs, err := db.RunHistory(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		return nil, fmt.Errorf("no run history found for %s", corpus)
	}

	if len(runs) < 2 && withRunID == "" && sinceDate == "" {
		return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// The latest run is always the current one.
	currentReport, err := db.GetRunByID(ctx, runs[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runs[0].ID, err)
	}

	var previousID string
	switch {
	case withRunID != "":
		previousID = withRunID
	case sinceDate != "":
		parsedDate, err := time.ParseInLocation("2006-01-02", sinceDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// Runs are newest first, so walk backwards to find the oldest
		// run at or after the date.
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].RankedAt.Before(parsedDate) {
				previousID = runs[i].ID
				break
			}
		}
		if previousID == "" {
			return nil, fmt.Errorf("no runs found since %s", sinceDate)
		}
		if previousID == runs[0].ID {
			return nil, fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", sinceDate)
		}
	default:
		previousID = runs[1].ID
	}

	previousReport, err := db.GetRunByID(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", previousID, err)
	}
	if previousReport == nil {
		return nil, fmt.Errorf("run with ID %s not found", previousID)
	}
	if previousReport.Corpus != corpus {
		return nil, fmt.Errorf("run %s belongs to %s, not %s", previousID, previousReport.Corpus, corpus)
	}

	return compareReports(previousReport, currentReport, method)
}

// ComparisonResult holds the result of comparing two runs of a corpus.
type ComparisonResult struct {
	// Corpus is the compared corpus.
	Corpus string `json:"corpus"`

	// Method is the estimator whose ranks are compared.
	Method model.Method `json:"method"`

	// PreviousRun and CurrentRun describe the compared runs.
	PreviousRun RunSummary `json:"previous_run"`
	CurrentRun  RunSummary `json:"current_run"`

	// Graph is "changed" when the link structure differs between the runs.
	Graph string `json:"graph"`

	// Changes holds every page present in both runs, largest change first.
	Changes []PageChange `json:"changes"`

	// NewPages and RemovedPages are the pages present in only one run.
	NewPages     []model.PageRank `json:"new_pages,omitempty"`
	RemovedPages []model.PageRank `json:"removed_pages,omitempty"`

	// MaxChange is the largest absolute rank change of a common page.
	MaxChange float64 `json:"max_change"`
}

// RunSummary contains metadata about a run for comparison display.
type RunSummary struct {
	ID          string    `json:"id"`
	DateRanked  time.Time `json:"date_ranked"`
	PageCount   int       `json:"page_count"`
	LinkCount   int       `json:"link_count"`
	Damping     float64   `json:"damping"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// PageChange is the rank of one page in both runs.
type PageChange struct {
	Page     string  `json:"page"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
}

func summarizeRun(r *model.RankReport) RunSummary {
	return RunSummary{
		ID:          r.ID,
		DateRanked:  r.DateRanked,
		PageCount:   r.PageCount,
		LinkCount:   r.LinkCount,
		Damping:     r.Damping,
		Fingerprint: r.Fingerprint,
	}
}

// compareReports compares the ranks that method produced in both runs.
func compareReports(previous, current *model.RankReport, method model.Method) (*ComparisonResult, error) {
	prevResult, ok := previous.Result(method)
	if !ok {
		return nil, fmt.Errorf("run %s has no %s results", previous.ID, method)
	}
	currResult, ok := current.Result(method)
	if !ok {
		return nil, fmt.Errorf("run %s has no %s results", current.ID, method)
	}

	result := &ComparisonResult{
		Corpus:      current.Corpus,
		Method:      method,
		PreviousRun: summarizeRun(previous),
		CurrentRun:  summarizeRun(current),
		Graph:       graphUnchanged,
		Changes:     make([]PageChange, 0, len(currResult.Ranks)),
	}
	if previous.Fingerprint != current.Fingerprint {
		result.Graph = graphChanged
	}

	for _, pr := range currResult.Ranks {
		prev, ok := prevResult.RankOf(pr.Page)
		if !ok {
			result.NewPages = append(result.NewPages, pr)
			continue
		}
		change := PageChange{
			Page:     pr.Page,
			Previous: prev,
			Current:  pr.Rank,
			Delta:    pr.Rank - prev,
		}
		result.MaxChange = math.Max(result.MaxChange, math.Abs(change.Delta))
		result.Changes = append(result.Changes, change)
	}
	for _, pr := range prevResult.Ranks {
		if _, ok := currResult.RankOf(pr.Page); !ok {
			result.RemovedPages = append(result.RemovedPages, pr)
		}
	}

	slices.SortStableFunc(result.Changes, func(a, b PageChange) int {
		if c := cmp.Compare(math.Abs(b.Delta), math.Abs(a.Delta)); c != 0 {
			return c
		}
		return cmp.Compare(a.Page, b.Page)
	})

	return result, nil
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Rank Comparison: " + result.Corpus)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Method:** %s, **Link structure:** %s", result.Method, result.Graph)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date",
				result.PreviousRun.DateRanked.Format("2006-01-02 15:04"),
				result.CurrentRun.DateRanked.Format("2006-01-02 15:04"),
				"-"},
			{"Pages",
				strconv.Itoa(result.PreviousRun.PageCount),
				strconv.Itoa(result.CurrentRun.PageCount),
				formatCountDelta(result.CurrentRun.PageCount - result.PreviousRun.PageCount)},
			{"Links",
				strconv.Itoa(result.PreviousRun.LinkCount),
				strconv.Itoa(result.CurrentRun.LinkCount),
				formatCountDelta(result.CurrentRun.LinkCount - result.PreviousRun.LinkCount)},
		},
	})
	md.PlainText("")

	if len(result.Changes) > 0 {
		md.H2("Rank Changes")
		md.PlainText("")
		rows := make([][]string, len(result.Changes))
		for i, c := range result.Changes {
			rows[i] = []string{
				c.Page,
				strconv.FormatFloat(c.Previous, 'f', 4, 64),
				strconv.FormatFloat(c.Current, 'f', 4, 64),
				formatDelta(c.Delta),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Previous", "Current", "Change"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(result.NewPages) > 0 {
		md.H2(fmt.Sprintf("New Pages (%d)", len(result.NewPages)))
		md.PlainText("")
		items := make([]string, len(result.NewPages))
		for i, pr := range result.NewPages {
			items[i] = fmt.Sprintf("`%s`: %.4f", pr.Page, pr.Rank)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.RemovedPages) > 0 {
		md.H2(fmt.Sprintf("Removed Pages (%d)", len(result.RemovedPages)))
		md.PlainText("")
		items := make([]string, len(result.RemovedPages))
		for i, pr := range result.RemovedPages {
			items[i] = fmt.Sprintf("~~`%s`: %.4f~~", pr.Page, pr.Rank)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Rank Comparison: %s (%s)\n", result.Corpus, result.Method)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nLink structure: %s\n", strings.ToUpper(result.Graph))

	fmt.Fprintf(out, "\nPrevious run: %s  %s\n", result.PreviousRun.DateRanked.Format("2006-01-02 15:04:05"), result.PreviousRun.ID)
	fmt.Fprintf(out, "Current run:  %s  %s\n", result.CurrentRun.DateRanked.Format("2006-01-02 15:04:05"), result.CurrentRun.ID)

	fmt.Fprintln(out, "\nRanks:")
	fmt.Fprintf(out, "  %-24s  %-10s  %-10s  %-10s\n", "Page", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, c := range result.Changes {
		fmt.Fprintf(out, "  %-24s  %-10.4f  %-10.4f  %-10s\n", c.Page, c.Previous, c.Current, formatDelta(c.Delta))
	}

	if len(result.NewPages) > 0 {
		fmt.Fprintf(out, "\nNew Pages (%d):\n", len(result.NewPages))
		for _, pr := range result.NewPages {
			fmt.Fprintf(out, "  [+] %s: %.4f\n", pr.Page, pr.Rank)
		}
	}

	if len(result.RemovedPages) > 0 {
		fmt.Fprintf(out, "\nRemoved Pages (%d):\n", len(result.RemovedPages))
		for _, pr := range result.RemovedPages {
			fmt.Fprintf(out, "  [-] %s: %.4f\n", pr.Page, pr.Rank)
		}
	}

	fmt.Fprintf(out, "\nLargest change: %.4f\n", result.MaxChange)

	return nil
}

// formatDelta formats a rank delta with sign for display. Deltas that round
// to zero are shown without sign.
func formatDelta(delta float64) string {
	s := strconv.FormatFloat(delta, 'f', 4, 64)
	if s == "0.0000" || s == "-0.0000" {
		return "0.0000"
	}
	if delta > 0 {
		return "+" + s
	}
	return s
}

// formatCountDelta formats a count delta with sign for display.
func formatCountDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
