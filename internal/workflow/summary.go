package workflow

import (
	"time"

	"folio/internal/checkpoint"
)

// PageReport describes the final state of one page after a run.
type PageReport struct {
	Page         int               `json:"page"`
	Status       checkpoint.Status `json:"status"`
	Attempts     int               `json:"attempts"`
	ErrorKind    string            `json:"error_kind,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Columns      int               `json:"columns,omitempty"`
	FragmentPath string            `json:"fragment_path,omitempty"`
	Confidence   float64           `json:"confidence,omitempty"`
}

// Summary aggregates the outcome of a run for reporting and the summary
// artifact.
type Summary struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Done       int          `json:"done"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Pages      []PageReport `json:"pages"`
}

// Clean reports whether every page finished successfully.
func (s Summary) Clean() bool {
	return s.Failed == 0 && s.Done == len(s.Pages)
}
