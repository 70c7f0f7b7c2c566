package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/BadgerOps/pipsync/internal/mirror"
	"github.com/BadgerOps/pipsync/internal/pip"
)

// fakeRunner records every request and fails specifiers listed in fail.
type fakeRunner struct {
	requests []pip.Request
	fail     map[string]string
}

func (f *fakeRunner) Install(_ context.Context, req pip.Request) pip.Result {
	f.requests = append(f.requests, req)
	if msg, ok := f.fail[req.Specifier]; ok {
		return pip.Result{ExitCode: 1, Stderr: "Collecting " + req.Specifier + "\n" + msg + "\n", Err: errors.New("exit status 1")}
	}
	return pip.Result{Stdout: "Successfully installed " + req.Specifier}
}

type fakeRecorder struct {
	results []PackageResult
	err     error
}

func (f *fakeRecorder) RecordPackage(_ context.Context, res PackageResult) error {
	f.results = append(f.results, res)
	return f.err
}

func newTestInstaller(runner pip.Runner, out io.Writer) *Installer {
	return NewInstaller(runner, out, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testMirror = mirror.NewSelected("http://good.example/simple")

func TestInstallAllSkipsCommentsAndBlanks(t *testing.T) {
	runner := &fakeRunner{}
	var out bytes.Buffer
	inst := newTestInstaller(runner, &out)

	stats, err := inst.InstallAll(context.Background(), strings.NewReader("# comment\n\nrequests==2.31.0\n"), testMirror)
	if err != nil {
		t.Fatalf("InstallAll() error = %v", err)
	}

	if len(runner.requests) != 1 {
		t.Fatalf("got %d install invocations, want 1", len(runner.requests))
	}
	if stats.Succeeded != 1 || stats.Failed != 0 {
		t.Errorf("counters = %d/%d, want 1/0", stats.Succeeded, stats.Failed)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}

	req := runner.requests[0]
	want := pip.Request{
		Specifier:   "requests==2.31.0",
		Index:       "http://good.example/simple",
		TrustedHost: "good.example",
		Upgrade:     true,
	}
	if req != want {
		t.Errorf("request = %+v, want %+v", req, want)
	}
	if !strings.Contains(out.String(), "✅ Installed: requests==2.31.0") {
		t.Errorf("missing success line: %s", out.String())
	}
}

func TestInstallAllContinuesAfterFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]string{
		"nonexistent-pkg": "ERROR: No matching distribution found for nonexistent-pkg",
	}}
	var out bytes.Buffer
	inst := newTestInstaller(runner, &out)

	stats, err := inst.InstallAll(context.Background(), strings.NewReader("nonexistent-pkg\nrequests\n"), testMirror)
	if err != nil {
		t.Fatalf("InstallAll() error = %v", err)
	}

	if len(runner.requests) != 2 {
		t.Fatalf("got %d install invocations, want 2", len(runner.requests))
	}
	if runner.requests[0].Specifier != "nonexistent-pkg" || runner.requests[1].Specifier != "requests" {
		t.Errorf("install order = %q, %q", runner.requests[0].Specifier, runner.requests[1].Specifier)
	}
	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("counters = %d/%d, want 1/1", stats.Succeeded, stats.Failed)
	}
	if stats.Status() != RunPartial {
		t.Errorf("Status() = %q, want %q", stats.Status(), RunPartial)
	}

	failed := stats.FailedResults()
	if len(failed) != 1 || failed[0].Error != "ERROR: No matching distribution found for nonexistent-pkg" {
		t.Errorf("FailedResults() = %+v", failed)
	}

	output := out.String()
	if !strings.Contains(output, "⛔ Failed: nonexistent-pkg") {
		t.Errorf("missing failure line: %s", output)
	}
	if !strings.Contains(output, "   Error: ERROR: No matching distribution found for nonexistent-pkg") {
		t.Errorf("missing error summary line: %s", output)
	}
	if strings.Contains(output, "Collecting nonexistent-pkg") {
		t.Errorf("output should only carry the last diagnostic line: %s", output)
	}
}

func TestInstallAllCountsMatchSpecifiers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		fail    []string
		wantOK  int
		wantBad int
	}{
		{"empty input", "", nil, 0, 0},
		{"all comments", "# a\n# b\n", nil, 0, 0},
		{"all succeed", "a\nb\nc\n", nil, 3, 0},
		{"all fail", "a\nb\n", []string{"a", "b"}, 0, 2},
		{"mixed with noise", "a\n\n# x\nb\n  \nc\n", []string{"b"}, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := make(map[string]string)
			for _, f := range tt.fail {
				fail[f] = "ERROR: boom"
			}
			runner := &fakeRunner{fail: fail}
			stats, err := newTestInstaller(runner, nil).InstallAll(context.Background(), strings.NewReader(tt.input), testMirror)
			if err != nil {
				t.Fatalf("InstallAll() error = %v", err)
			}
			if stats.Succeeded != tt.wantOK || stats.Failed != tt.wantBad {
				t.Errorf("counters = %d/%d, want %d/%d", stats.Succeeded, stats.Failed, tt.wantOK, tt.wantBad)
			}
			if stats.Processed() != len(runner.requests) {
				t.Errorf("Processed() = %d, invocations = %d", stats.Processed(), len(runner.requests))
			}
		})
	}
}

func TestInstallAllUpgradeDisabled(t *testing.T) {
	runner := &fakeRunner{}
	inst := newTestInstaller(runner, nil)
	inst.SetUpgrade(false)

	if _, err := inst.InstallAll(context.Background(), strings.NewReader("rich\n"), testMirror); err != nil {
		t.Fatal(err)
	}
	if runner.requests[0].Upgrade {
		t.Error("Upgrade = true, want false")
	}
}

func TestInstallAllRecorder(t *testing.T) {
	runner := &fakeRunner{fail: map[string]string{"bad": "ERROR: nope"}}
	rec := &fakeRecorder{err: errors.New("database is locked")}
	inst := newTestInstaller(runner, nil)
	inst.SetRecorder(rec)

	stats, err := inst.InstallAll(context.Background(), strings.NewReader("good\nbad\n"), testMirror)
	if err != nil {
		t.Fatalf("InstallAll() error = %v", err)
	}

	// Recorder errors must not change the outcome.
	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("counters = %d/%d, want 1/1", stats.Succeeded, stats.Failed)
	}
	if len(rec.results) != 2 {
		t.Fatalf("recorder saw %d results, want 2", len(rec.results))
	}
	if rec.results[0].Status != StatusInstalled || rec.results[1].Status != StatusFailed {
		t.Errorf("recorded statuses = %q, %q", rec.results[0].Status, rec.results[1].Status)
	}
}

func TestInstallAllElapsed(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	inst := newTestInstaller(&fakeRunner{}, nil)
	inst.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 500 * time.Millisecond)
	}

	stats, err := inst.InstallAll(context.Background(), strings.NewReader("a\nb\n"), testMirror)
	if err != nil {
		t.Fatal(err)
	}

	// start, one timestamp per package, end
	if stats.Elapsed != 1500*time.Millisecond {
		t.Errorf("Elapsed = %s, want 1.5s", stats.Elapsed)
	}
	if !stats.StartTime.Equal(base.Add(500 * time.Millisecond)) {
		t.Errorf("StartTime = %s", stats.StartTime)
	}
}

type brokenReader struct {
	data []byte
	done bool
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if !b.done {
		b.done = true
		return copy(p, b.data), nil
	}
	return 0, errors.New("device gone")
}

func TestInstallAllReadError(t *testing.T) {
	runner := &fakeRunner{}
	stats, err := newTestInstaller(runner, nil).InstallAll(context.Background(), &brokenReader{data: []byte("a\nb\n")}, testMirror)
	if err == nil || !strings.Contains(err.Error(), "device gone") {
		t.Fatalf("InstallAll() error = %v, want read error", err)
	}
	if stats == nil || stats.Succeeded != 2 {
		t.Errorf("stats = %+v, want 2 packages installed before the error", stats)
	}
}

func TestInstallAllLongLineIsOnePackage(t *testing.T) {
	long := strings.Repeat("x", 70*1024)
	runner := &fakeRunner{fail: map[string]string{long: "ERROR: Invalid requirement"}}

	input := "first\n" + long + "\nafter\n"
	stats, err := newTestInstaller(runner, nil).InstallAll(context.Background(), strings.NewReader(input), testMirror)
	if err != nil {
		t.Fatalf("InstallAll() error = %v", err)
	}
	if len(runner.requests) != 3 {
		t.Fatalf("invocations = %d, want 3", len(runner.requests))
	}
	if stats.Succeeded != 2 || stats.Failed != 1 {
		t.Errorf("counters = %d/%d, want 2/1", stats.Succeeded, stats.Failed)
	}
	if runner.requests[2].Specifier != "after" {
		t.Errorf("last specifier = %q, want after", runner.requests[2].Specifier)
	}
}

func TestRunStatsStatus(t *testing.T) {
	tests := []struct {
		ok, bad int
		want    string
	}{
		{0, 0, RunSuccess},
		{3, 0, RunSuccess},
		{0, 2, RunFailed},
		{1, 1, RunPartial},
	}
	for _, tt := range tests {
		s := &RunStats{Succeeded: tt.ok, Failed: tt.bad}
		if got := s.Status(); got != tt.want {
			t.Errorf("Status(%d/%d) = %q, want %q", tt.ok, tt.bad, got, tt.want)
		}
	}
}
