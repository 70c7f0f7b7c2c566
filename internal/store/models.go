package store

import "time"

// InstallRun records one installer execution
type InstallRun struct {
	ID           int64
	Mirror       string
	TrustedHost  string
	Requirements string // path of the requirements file
	StartTime    time.Time
	EndTime      time.Time
	Succeeded    int
	Failed       int
	Status       string // "running", "success", "partial", "failed"
}

// PackageResult records the outcome of a single specifier within a run
type PackageResult struct {
	ID         int64
	RunID      int64
	Specifier  string
	Status     string // "installed", "failed"
	Error      string
	ExitCode   int
	FinishedAt time.Time
}
