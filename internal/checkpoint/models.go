package checkpoint

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a page record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusDone,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Record is the durable checkpoint entry for one page.
type Record struct {
	Page         int
	Status       Status
	ErrorKind    string
	ErrorMessage string
	Attempts     int
	ClaimedAt    *time.Time
	UpdatedAt    time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status concludes a claim.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Eligible reports whether a record may be claimed for processing.
func (r Record) Eligible() bool {
	return r.Status == StatusPending || r.Status == StatusFailed
}

// Summary describes aggregated record counts per lifecycle state.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Done       int
	Failed     int
}
