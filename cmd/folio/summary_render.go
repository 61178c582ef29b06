package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"folio/internal/checkpoint"
	"folio/internal/workflow"
)

// renderSummary prints the run outcome as a table plus a one-line verdict.
// Failed pages are listed separately with their error kinds so the user can
// pass them to retry.
func renderSummary(out io.Writer, summary workflow.Summary) {
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(summary.Pages))
	for _, report := range summary.Pages {
		row := []string{
			strconv.Itoa(report.Page),
			colorizeStatus(string(report.Status), colorize),
			formatColumns(report),
			formatConfidence(report),
			report.ErrorKind,
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Page", "Status", "Columns", "Confidence", "Error"},
		rows, 0, 2, 3))

	elapsed := summary.FinishedAt.Sub(summary.StartedAt).Round(10 * time.Millisecond)
	fmt.Fprintf(out, "%d done, %d failed", summary.Done, summary.Failed)
	if summary.Skipped > 0 {
		fmt.Fprintf(out, " (%d already done, skipped)", summary.Skipped)
	}
	fmt.Fprintf(out, " in %s\n", elapsed)

	for _, report := range summary.Pages {
		if report.Status != checkpoint.StatusFailed {
			continue
		}
		fmt.Fprintf(out, "  page %d: %s: %s\n", report.Page, report.ErrorKind, report.ErrorMessage)
	}
	if summary.Failed > 0 {
		fmt.Fprintln(out, "Run `folio retry` to mark failed pages for reprocessing.")
	}
}

func formatColumns(report workflow.PageReport) string {
	if report.Columns == 0 {
		return ""
	}
	return strconv.Itoa(report.Columns)
}

func formatConfidence(report workflow.PageReport) string {
	if report.Confidence == 0 {
		return ""
	}
	return strconv.FormatFloat(report.Confidence, 'f', 2, 64)
}
