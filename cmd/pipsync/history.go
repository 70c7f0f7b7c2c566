package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BadgerOps/pipsync/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFailed bool
	historyRunID  int64
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous install runs",
		Long: `Show previous install runs recorded in the local history database,
newest first. Use --failed to list the packages that failed in the most
recent run, or of the run given with --run.`,
		Example: `  pipsync history
  pipsync history --limit 5
  pipsync history --failed
  pipsync history --failed --run 12`,
		Args: cobra.NoArgs,
		RunE: historyRun,
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&historyFailed, "failed", false, "list failed packages of the most recent run")
	cmd.Flags().Int64Var(&historyRunID, "run", 0, "run ID for --failed (default most recent)")

	return cmd
}

func historyRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalStore == nil {
		return fmt.Errorf("store not initialized")
	}

	if historyFailed {
		return historyFailedRun(historyRunID)
	}

	runs, err := globalStore.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	log.Debug("history request", "limit", historyLimit, "runs", len(runs))

	if len(runs) == 0 {
		fmt.Println("No install runs recorded.")
		return nil
	}

	fmt.Println("Install History")
	fmt.Println("===============")
	fmt.Println("")
	fmt.Printf("%-6s %-16s %-9s %6s %6s %10s  %s\n", "Run", "Started", "Status", "OK", "Failed", "Duration", "Mirror")
	fmt.Println(strings.Repeat("-", 100))

	for _, run := range runs {
		duration := "-"
		if !run.EndTime.IsZero() && run.EndTime.After(run.StartTime) {
			duration = fmt.Sprintf("%.2fs", run.EndTime.Sub(run.StartTime).Seconds())
		}
		fmt.Printf("%-6d %-16s %-9s %6d %6d %10s  %s\n",
			run.ID,
			humanize.Time(run.StartTime),
			run.Status,
			run.Succeeded,
			run.Failed,
			duration,
			run.Mirror,
		)
	}
	fmt.Println("")

	return nil
}

func historyFailedRun(runID int64) error {
	var (
		run *store.InstallRun
		err error
	)
	if runID > 0 {
		run, err = globalStore.GetRun(runID)
	} else {
		run, err = globalStore.LatestRun()
	}
	if err != nil {
		return fmt.Errorf("loading run: %w", err)
	}
	if run == nil {
		fmt.Println("No install runs recorded.")
		return nil
	}

	failed, err := globalStore.ListPackageResults(run.ID, "failed")
	if err != nil {
		return fmt.Errorf("listing failed packages: %w", err)
	}

	if len(failed) == 0 {
		fmt.Printf("Run %d (%s) had no failed packages.\n", run.ID, humanize.Time(run.StartTime))
		return nil
	}

	fmt.Printf("Failed packages in run %d (%s, mirror %s):\n", run.ID, humanize.Time(run.StartTime), run.Mirror)
	for _, res := range failed {
		fmt.Printf("  - %s: %s\n", res.Specifier, res.Error)
	}
	fmt.Println("")
	fmt.Printf("Retry one with: pip install <package> -i %s --trusted-host %s\n", run.Mirror, run.TrustedHost)

	return nil
}
