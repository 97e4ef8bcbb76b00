package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/younsl/lifecycled/internal/models"
)

// PrintDispatchTable prints dedupe ledger entries in claim order
func PrintDispatchTable(w io.Writer, entries []models.DispatchEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No archival dispatches.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Instance ID", "Event Type", "Event Time", "Status", "Handle", "Claimed"})

	dispatched := 0
	for _, e := range entries {
		if e.Status == models.DispatchDispatched {
			dispatched++
		}
		t.AppendRow(table.Row{
			e.InstanceID,
			e.EventType,
			e.EventTime,
			e.Status,
			truncateString(orNone(e.Handle), 50),
			time.Unix(e.ClaimedAt, 0).UTC().Format("2006-01-02 15:04:05"),
		})
	}
	t.AppendFooter(table.Row{"Total", "", "", fmt.Sprintf("%s dispatched", humanize.Comma(int64(dispatched))), "", humanize.Comma(int64(len(entries)))})
	t.Render()
}
