package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"folio/internal/checkpoint"
	"folio/internal/workflow"
)

func TestRenderSummaryListsFailuresWithKinds(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	summary := workflow.Summary{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Done:       2,
		Failed:     1,
		Pages: []workflow.PageReport{
			{Page: 1, Status: checkpoint.StatusDone, Columns: 3, Confidence: 0.91, FragmentPath: "page_0001.pdf"},
			{Page: 2, Status: checkpoint.StatusFailed, ErrorKind: "column_detection", ErrorMessage: "no valid 2-6 column layout"},
			{Page: 3, Status: checkpoint.StatusDone, Columns: 4, Confidence: 0.88},
		},
	}

	var buf bytes.Buffer
	renderSummary(&buf, summary)
	out := buf.String()

	if !strings.Contains(out, "2 done, 1 failed") {
		t.Errorf("missing verdict line: %q", out)
	}
	if !strings.Contains(out, "page 2: column_detection: no valid 2-6 column layout") {
		t.Errorf("missing failed page detail: %q", out)
	}
	if !strings.Contains(out, "folio retry") {
		t.Errorf("missing retry hint: %q", out)
	}
	if !strings.Contains(out, "0.91") {
		t.Errorf("missing confidence cell: %q", out)
	}
}

func TestRenderSummaryMentionsSkippedPages(t *testing.T) {
	start := time.Now()
	summary := workflow.Summary{
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Done:       3,
		Skipped:    2,
		Pages: []workflow.PageReport{
			{Page: 1, Status: checkpoint.StatusDone},
			{Page: 2, Status: checkpoint.StatusDone},
			{Page: 3, Status: checkpoint.StatusDone, Columns: 3, Confidence: 0.9},
		},
	}

	var buf bytes.Buffer
	renderSummary(&buf, summary)
	out := buf.String()

	if !strings.Contains(out, "(2 already done, skipped)") {
		t.Errorf("missing skipped note: %q", out)
	}
	if strings.Contains(out, "folio retry") {
		t.Errorf("clean run should not suggest retry: %q", out)
	}
}
