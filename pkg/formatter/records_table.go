package formatter

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
	"github.com/younsl/lifecycled/pkg/utils"
)

// PrintRecordsTable prints instance records kubectl style, oldest first
func PrintRecordsTable(w io.Writer, records []models.InstanceRecord, now time.Time) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No instance records found.")
		return
	}

	sorted := append([]models.InstanceRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FirstObservedTime < sorted[j].FirstObservedTime
	})

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE ID\tNAME\tTYPE\tLIFECYCLE\tZONE\tPHASE\tLAST EVENT\tAGE")
	for _, rec := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.InstanceID,
			getInstanceName(rec.Tags),
			orNone(rec.InstanceType),
			orNone(rec.InstanceLifecycle),
			orNone(rec.AvailabilityZone),
			lifecycle.PhaseOf(rec, true),
			orNone(string(rec.LastEventType)),
			utils.RelativeAge(rec.FirstObservedTime, now),
		)
	}
	tw.Flush()
}

// PrintRecordsSummary prints how many records sit in each phase
func PrintRecordsSummary(w io.Writer, records []models.InstanceRecord) {
	if len(records) == 0 {
		return
	}

	counts := make(map[lifecycle.Phase]int)
	for _, rec := range records {
		counts[lifecycle.PhaseOf(rec, true)]++
	}

	fmt.Fprintln(w, "\n## Instance Phase Summary")
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tINSTANCE COUNT")
	phases := []lifecycle.Phase{
		lifecycle.PhaseObserved,
		lifecycle.PhaseEnriched,
		lifecycle.PhaseRunning,
		lifecycle.PhaseInterrupted,
		lifecycle.PhaseTerminated,
		lifecycle.PhaseArchivable,
	}
	for _, p := range phases {
		if counts[p] == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", p, humanize.Comma(int64(counts[p])))
	}
	fmt.Fprintf(tw, "Total:\t%s\n", humanize.Comma(int64(len(records))))
	tw.Flush()
}

// PrintRecord prints every attribute of one record with its derived phase
func PrintRecord(w io.Writer, rec models.InstanceRecord, found bool, now time.Time) {
	if !found {
		fmt.Fprintf(w, "Instance %s has no record (%s).\n", rec.InstanceID, lifecycle.PhaseUnseen)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s", rec.InstanceID)
	t.AppendHeader(table.Row{"Attribute", "Value"})
	t.AppendRows([]table.Row{
		{"Phase", lifecycle.PhaseOf(rec, true)},
		{"Name", getInstanceName(rec.Tags)},
		{"Region", orNone(rec.Region)},
		{"AvailabilityZone", orNone(rec.AvailabilityZone)},
		{"InstanceType", orNone(rec.InstanceType)},
		{"InstanceLifecycle", orNone(rec.InstanceLifecycle)},
		{"MetadataEnriched", rec.MetadataEnriched},
		{"State", orNone(string(rec.State))},
		{"LaunchedTime", orNone(rec.LaunchedTime)},
		{"TerminatedTime", orNone(rec.TerminatedTime)},
		{"SpotInstanceRequestId", orNone(rec.SpotInstanceRequestID)},
		{"Interrupted", rec.Interrupted},
		{"InterruptedInstanceAction", orNone(rec.InterruptedInstanceAction)},
		{"InterruptionTime", orNone(rec.InterruptionTime)},
		{"LastEventType", orNone(string(rec.LastEventType))},
		{"LastEventTime", orNone(rec.LastEventTime)},
		{"FirstObserved", fmt.Sprintf("%s (%s)", orNone(rec.FirstObservedTime), utils.RelativeAge(rec.FirstObservedTime, now))},
		{"Expires", utils.FormatExpiration(rec.ExpirationTime, now)},
	})
	for _, tag := range rec.Tags {
		t.AppendRow(table.Row{"tag:" + tag.Key, truncateString(tag.Value, 60)})
	}
	t.Render()
}

// getInstanceName returns the Name tag or <unnamed> if empty
func getInstanceName(tags []models.Tag) string {
	name := utils.GetName(tags)
	if name == "" {
		return "<unnamed>"
	}
	return name
}
