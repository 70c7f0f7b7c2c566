package engine

import (
	"fmt"
	"io"
	"strings"
)

const separatorWidth = 50

// WriteBanner prints the line announcing which mirror the run will use.
func WriteBanner(w io.Writer, mirrorURL string) {
	fmt.Fprintf(w, "\nStarting installation using mirror: %s\n", mirrorURL)
	fmt.Fprintln(w, strings.Repeat("=", separatorWidth))
}

// WriteSummary prints the end-of-run report. Remediation hints are only
// printed when at least one package failed.
func WriteSummary(w io.Writer, stats *RunStats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", separatorWidth))
	fmt.Fprintf(w, "Installation finished in %.2fs\n", stats.Elapsed.Seconds())
	fmt.Fprintf(w, "Succeeded: %d, Failed: %d\n", stats.Succeeded, stats.Failed)
	fmt.Fprintf(w, "Mirror used: %s\n", stats.Mirror)

	if stats.Failed > 0 {
		names := make([]string, 0, stats.Failed)
		for _, res := range stats.FailedResults() {
			names = append(names, res.Specifier)
		}
		fmt.Fprintf(w, "Failed packages: %s\n", strings.Join(names, ", "))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "⚠️ Some packages failed to install. For each failed package:")
		fmt.Fprintln(w, "   - try installing it on its own: pip install <package> -i <mirror>")
		fmt.Fprintln(w, "   - check that the package name is spelled correctly")
		fmt.Fprintln(w, "   - check that the package supports the current Python version")
	}
}
