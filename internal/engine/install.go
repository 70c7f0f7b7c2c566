package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/BadgerOps/pipsync/internal/mirror"
	"github.com/BadgerOps/pipsync/internal/pip"
	"github.com/BadgerOps/pipsync/internal/requirements"
)

// Recorder is notified after every install attempt. Errors are logged and
// never interrupt the run.
type Recorder interface {
	RecordPackage(ctx context.Context, res PackageResult) error
}

// Installer runs pip once per specifier, strictly one after another.
type Installer struct {
	runner   pip.Runner
	logger   *slog.Logger
	out      io.Writer
	upgrade  bool
	recorder Recorder
	now      func() time.Time
}

// NewInstaller creates an Installer writing status lines to out.
func NewInstaller(runner pip.Runner, out io.Writer, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	return &Installer{
		runner:  runner,
		logger:  logger,
		out:     out,
		upgrade: true,
		now:     time.Now,
	}
}

// SetUpgrade controls whether --upgrade is passed to pip. Defaults to true.
func (i *Installer) SetUpgrade(upgrade bool) {
	i.upgrade = upgrade
}

// SetRecorder attaches a recorder for per-package results.
func (i *Installer) SetRecorder(r Recorder) {
	i.recorder = r
}

// InstallAll reads specifiers from src and installs each one against sel.
// A failed install is counted and reported but does not stop the loop.
// The only error returned is a failure to read src; the stats gathered up
// to that point are returned alongside it.
func (i *Installer) InstallAll(ctx context.Context, src io.Reader, sel mirror.Selected) (*RunStats, error) {
	stats := &RunStats{
		Mirror:      sel.URL,
		TrustedHost: sel.TrustedHost,
		StartTime:   i.now(),
	}
	defer func() {
		stats.Elapsed = i.now().Sub(stats.StartTime)
	}()

	reader := requirements.NewReader(src)
	for {
		spec, ok := reader.Next()
		if !ok {
			break
		}

		req := pip.Request{
			Specifier:   spec,
			Index:       sel.URL,
			TrustedHost: sel.TrustedHost,
			Upgrade:     i.upgrade,
		}
		i.logger.Debug("installing package", "specifier", spec, "index", sel.URL)

		res := i.runner.Install(ctx, req)
		pr := PackageResult{
			Specifier:  spec,
			ExitCode:   res.ExitCode,
			FinishedAt: i.now(),
		}

		if res.OK() {
			pr.Status = StatusInstalled
			fmt.Fprintf(i.out, "✅ Installed: %s\n", spec)
		} else {
			pr.Status = StatusFailed
			pr.Error = res.Summary()
			fmt.Fprintf(i.out, "⛔ Failed: %s\n", spec)
			fmt.Fprintf(i.out, "   Error: %s\n", pr.Error)
			i.logger.Debug("package install failed",
				"specifier", spec, "exit_code", res.ExitCode, "stderr", res.Stderr)
		}
		stats.record(pr)

		if i.recorder != nil {
			if err := i.recorder.RecordPackage(ctx, pr); err != nil {
				i.logger.Warn("failed to record package result", "specifier", spec, "error", err)
			}
		}
	}
	stats.Skipped = reader.Skipped()

	if err := reader.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
