package formatter

import (
	"fmt"
	"io"
	"time"
)

// printTimestamp prints when a run started and how long it took
func printTimestamp(w io.Writer, startTime time.Time, duration time.Duration) {
	timeStr := startTime.Format("2006-01-02 15:04:05")
	durationStr := fmt.Sprintf("%.2fs", duration.Seconds())

	fmt.Fprintf(w, "Replay completed at %s (took %s)\n", timeStr, durationStr)
}

// orNone returns s or a placeholder when s is empty
func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

// truncateString shortens s to max runes, marking the cut with "..."
func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}
