package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BadgerOps/pipsync/internal/engine"
	"github.com/BadgerOps/pipsync/internal/mirror"
	"github.com/BadgerOps/pipsync/internal/pip"
	"github.com/BadgerOps/pipsync/internal/requirements"
	"github.com/BadgerOps/pipsync/internal/store"
	"github.com/spf13/cobra"
)

var (
	installRequirements string
	installMirrors      []string
	installPython       string
	installNoUpgrade    bool

	// newRunner is swapped out in tests.
	newRunner = func(interpreter string) pip.Runner {
		return pip.NewExecRunner(interpreter)
	}
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install every package of a requirements file",
		Long: `Select the first reachable mirror, then install each package listed in the
requirements file with "python -m pip install <package> --upgrade -i <mirror>
--trusted-host <host>", one package at a time.

Blank lines and lines starting with '#' are ignored. A package that fails
to install is reported and skipped; the run continues with the next one and
a summary is printed at the end. Failed packages do not change the exit
status.`,
		Example: `  pipsync install
  pipsync install -r requirements.txt
  pipsync install --mirror https://mirrors.aliyun.com/pypi/simple/ --mirror https://pypi.tuna.tsinghua.edu.cn/simple
  pipsync install --python /opt/venv/bin/python`,
		Args: cobra.NoArgs,
		RunE: installRun,
	}

	cmd.Flags().StringVarP(&installRequirements, "requirements", "r", "", "requirements file (default from config)")
	cmd.Flags().StringSliceVarP(&installMirrors, "mirror", "m", nil, "candidate mirror URL, repeatable, in priority order (default from config)")
	cmd.Flags().StringVar(&installPython, "python", "", "Python interpreter used to run pip (default from config)")
	cmd.Flags().BoolVar(&installNoUpgrade, "no-upgrade", false, "do not pass --upgrade to pip")

	return cmd
}

func installRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	reqPath := globalCfg.Install.Requirements
	if installRequirements != "" {
		reqPath = installRequirements
	}
	candidates := globalCfg.Mirrors
	if len(installMirrors) > 0 {
		candidates = installMirrors
	}
	interpreter := globalCfg.Install.Interpreter
	if installPython != "" {
		interpreter = installPython
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := os.Stdout

	log.Debug("install request", "requirements", reqPath, "mirrors", candidates, "interpreter", interpreter)

	selector := mirror.NewSelector(mirror.Options{
		ProbePath:    globalCfg.Probe.Path,
		Timeout:      globalCfg.Probe.Timeout,
		DefaultIndex: globalCfg.DefaultIndex,
		Output:       out,
	}, log)
	sel := mirror.NewSelected(selector.Select(ctx, candidates))

	f, err := requirements.Open(appFs, reqPath)
	if err != nil {
		return err
	}
	defer f.Close()

	engine.WriteBanner(out, sel.URL)

	installer := engine.NewInstaller(newRunner(interpreter), out, log)
	installer.SetUpgrade(globalCfg.Install.Upgrade && !installNoUpgrade)

	var rec *historyRecorder
	if globalStore != nil {
		rec, err = startHistory(globalStore, sel, reqPath)
		if err != nil {
			log.Warn("failed to record run start, continuing without history", "error", err)
			rec = nil
		} else {
			installer.SetRecorder(rec)
		}
	}

	stats, err := installer.InstallAll(ctx, f, sel)
	if rec != nil {
		if ferr := rec.finish(stats, err); ferr != nil {
			log.Warn("failed to record run result", "run_id", rec.run.ID, "error", ferr)
		}
	}
	if err != nil {
		return err
	}
	log.Debug("install run finished", "processed", stats.Processed(), "skipped", stats.Skipped, "status", stats.Status())

	engine.WriteSummary(out, stats)
	return nil
}

// historyRecorder writes per-package results of one run to the store.
type historyRecorder struct {
	store *store.Store
	run   *store.InstallRun
}

func startHistory(st *store.Store, sel mirror.Selected, reqPath string) (*historyRecorder, error) {
	run := &store.InstallRun{
		Mirror:       sel.URL,
		TrustedHost:  sel.TrustedHost,
		Requirements: reqPath,
		StartTime:    time.Now(),
		Status:       "running",
	}
	if err := st.CreateRun(run); err != nil {
		return nil, err
	}
	return &historyRecorder{store: st, run: run}, nil
}

// RecordPackage implements engine.Recorder.
func (h *historyRecorder) RecordPackage(_ context.Context, res engine.PackageResult) error {
	return h.store.AddPackageResult(&store.PackageResult{
		RunID:      h.run.ID,
		Specifier:  res.Specifier,
		Status:     string(res.Status),
		Error:      res.Error,
		ExitCode:   res.ExitCode,
		FinishedAt: res.FinishedAt,
	})
}

// finish stores the final counters. A run cut short by runErr is failed
// whatever its counters say.
func (h *historyRecorder) finish(stats *engine.RunStats, runErr error) error {
	h.run.EndTime = time.Now()
	h.run.Status = engine.RunFailed
	if stats != nil {
		h.run.Succeeded = stats.Succeeded
		h.run.Failed = stats.Failed
		if runErr == nil {
			h.run.Status = stats.Status()
		}
	}
	return h.store.UpdateRun(h.run)
}
