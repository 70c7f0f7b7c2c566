package engine

import (
	"time"
)

// PackageStatus is the outcome of a single install attempt.
type PackageStatus string

const (
	StatusInstalled PackageStatus = "installed"
	StatusFailed    PackageStatus = "failed"
)

// Run status values, derived from the final counters.
const (
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailed  = "failed"
)

// PackageResult records one specifier and what happened to it.
type PackageResult struct {
	Specifier  string        `json:"specifier"`
	Status     PackageStatus `json:"status"`
	ExitCode   int           `json:"exit_code"`
	Error      string        `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RunStats accumulates the counters for one installer run. It is owned by a
// single run and is not safe for concurrent use.
type RunStats struct {
	Mirror      string          `json:"mirror"`
	TrustedHost string          `json:"trusted_host"`
	StartTime   time.Time       `json:"start_time"`
	Elapsed     time.Duration   `json:"elapsed"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	Skipped     int             `json:"skipped"`
	Results     []PackageResult `json:"results,omitempty"`
}

// record counts res and appends it to the result log.
func (s *RunStats) record(res PackageResult) {
	switch res.Status {
	case StatusInstalled:
		s.Succeeded++
	default:
		s.Failed++
	}
	s.Results = append(s.Results, res)
}

// Processed returns the number of specifiers that were attempted.
func (s *RunStats) Processed() int {
	return s.Succeeded + s.Failed
}

// FailedResults returns only the failed attempts, in install order.
func (s *RunStats) FailedResults() []PackageResult {
	var failed []PackageResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Status summarizes the run: success when nothing failed, failed when
// nothing succeeded, partial otherwise.
func (s *RunStats) Status() string {
	switch {
	case s.Failed == 0:
		return RunSuccess
	case s.Succeeded == 0:
		return RunFailed
	default:
		return RunPartial
	}
}
