package formatter

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/younsl/lifecycled/internal/engine"
)

// PrintReplaySummary prints the counters of one replay run followed by
// the rejected events and failed changes, if any
func PrintReplaySummary(w io.Writer, sum engine.Summary, startTime time.Time, duration time.Duration) {
	fmt.Fprintln(w, "\n## Replay Summary")
	printTimestamp(w, startTime, duration)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCOUNT")
	rows := []struct {
		stage string
		n     int
	}{
		{"Events read", sum.Events},
		{"Applied", sum.Applied},
		{"Skipped", sum.Skipped},
		{"Stale", sum.Stale},
		{"Rejected", len(sum.Rejected)},
		{"Enriched", sum.Enriched},
		{"Dispatched", len(sum.Dispatched)},
		{"Failed", len(sum.Failures)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.stage, humanize.Comma(int64(r.n)))
	}
	tw.Flush()

	for _, err := range sum.Rejected {
		fmt.Fprintf(w, "rejected: %v\n", err)
	}
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "failed: %s (seq %s): %v\n", f.Change.InstanceID, f.Change.SequenceNumber, f.Err)
	}
}
