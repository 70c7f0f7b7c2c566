package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BadgerOps/pipsync/internal/mirror"
	"github.com/spf13/cobra"
)

var mirrorsCandidates []string

func newMirrorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrors",
		Short: "Probe every configured mirror and show which one would be used",
		Long: `Probe every candidate mirror, in priority order, and print its status,
latency and failure class. Unlike install, probing does not stop at the
first available mirror. The mirror install would select is shown last.`,
		Example: `  pipsync mirrors
  pipsync mirrors --mirror http://localhost:3141/root/pypi/+simple/`,
		Args: cobra.NoArgs,
		RunE: mirrorsRun,
	}

	cmd.Flags().StringSliceVarP(&mirrorsCandidates, "mirror", "m", nil, "candidate mirror URL, repeatable (default from config)")

	return cmd
}

func mirrorsRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	candidates := globalCfg.Mirrors
	if len(mirrorsCandidates) > 0 {
		candidates = mirrorsCandidates
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	selector := mirror.NewSelector(mirror.Options{
		ProbePath:    globalCfg.Probe.Path,
		Timeout:      globalCfg.Probe.Timeout,
		DefaultIndex: globalCfg.DefaultIndex,
	}, log)

	log.Debug("probing mirrors", "count", len(candidates))
	results := selector.ProbeAll(ctx, candidates)

	fmt.Println("Mirror Status")
	fmt.Println("=============")
	fmt.Println("")
	fmt.Printf("%-56s %-12s %8s %-12s\n", "Mirror", "Status", "Latency", "Failure")
	fmt.Println(strings.Repeat("-", 92))

	selected := selector.DefaultIndex()
	found := false
	for _, r := range results {
		status := "unavailable"
		if r.Available() {
			status = "available"
			if !found {
				selected = r.URL
				found = true
			}
		}
		fmt.Printf("%-56s %-12s %6dms %-12s\n", r.URL, status, r.LatencyMs, r.Failure)
	}

	fmt.Println("")
	if found {
		fmt.Printf("Selected mirror: %s\n", selected)
	} else {
		fmt.Printf("No mirror available, install would use: %s\n", selected)
	}
	fmt.Printf("Trusted host: %s\n", mirror.TrustedHost(selected))

	return nil
}
