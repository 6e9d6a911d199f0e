package models

import "time"

// RunResult holds the overall result of one incremental run.
type RunResult struct {
	StartTime      time.Time
	EndTime        time.Time
	PageCount      int
	ListedCount    int
	NewCount       int
	DetailOK       int
	DetailFailed   int
	RowsWritten    int
	SeenCount      int
	RequestCount   int
	ErrorsByType   map[string]int
	FailedURLs     []string
	NoOp           bool
	StatePersisted bool
}

// Duration is the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
