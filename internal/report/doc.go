// Package report writes ranking results.
//
// Three formats are available: the plain text listing printed by default,
// JSON for other tools, and Markdown with a mermaid pie chart for sharing.
// All writers implement Writer and take a *model.RankReport.
package report
