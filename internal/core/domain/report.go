package domain

import "time"

// TableStatus is the outcome of writing one table to one sink.
type TableStatus string

// Table outcomes.
const (
	TableWritten TableStatus = "written"
	TableSkipped TableStatus = "skipped"
	TableFailed  TableStatus = "failed"
)

// TableResult records one table written to one sink.
type TableResult struct {
	Table  string
	Sink   string
	Status TableStatus

	// Rows is the number of rows written.
	Rows int

	// Destination is a file path or store table name.
	Destination string

	Err error
}

// ResourceResult records the outcome of one resource.
type ResourceResult struct {
	Resource string
	Items    int
	Pages    int

	// Truncated is set when pagination stopped early on a transport error.
	Truncated bool

	Tables []TableResult

	// Err is set when the resource failed before any table was written.
	Err error
}

// Failed reports whether the resource or any of its tables failed.
func (r ResourceResult) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, t := range r.Tables {
		if t.Status == TableFailed {
			return true
		}
	}
	return false
}

// RunReport summarises an export run.
type RunReport struct {
	RunID      string
	TenantID   string
	StartedAt  time.Time
	FinishedAt time.Time
	Resources  []ResourceResult

	// Aborted holds the fatal error that stopped the run, if any.
	Aborted error
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the run aborted or any resource failed.
func (r *RunReport) Failed() bool {
	if r.Aborted != nil {
		return true
	}
	for _, res := range r.Resources {
		if res.Failed() {
			return true
		}
	}
	return false
}

// FailedCount returns the number of failed resources.
func (r *RunReport) FailedCount() int {
	n := 0
	for _, res := range r.Resources {
		if res.Failed() {
			n++
		}
	}
	return n
}
