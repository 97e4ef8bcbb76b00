package lifecycle

import "github.com/younsl/lifecycled/internal/models"

// Phase is the derived lifecycle position of a record. It is never stored.
type Phase string

const (
	PhaseUnseen      Phase = "UNSEEN"
	PhaseObserved    Phase = "OBSERVED"
	PhaseEnriched    Phase = "ENRICHED"
	PhaseRunning     Phase = "RUNNING"
	PhaseInterrupted Phase = "INTERRUPTED"
	PhaseTerminated  Phase = "TERMINATED"
	PhaseArchivable  Phase = "ARCHIVABLE"
)

// PhaseOf derives the phase of rec. found is false for unknown instances.
func PhaseOf(rec models.InstanceRecord, found bool) Phase {
	if !found {
		return PhaseUnseen
	}
	if Archivable(rec) {
		return PhaseArchivable
	}
	switch {
	case rec.State == models.StateTerminated:
		return PhaseTerminated
	case rec.Interrupted:
		return PhaseInterrupted
	case rec.State == models.StateRunning:
		return PhaseRunning
	case rec.MetadataEnriched:
		return PhaseEnriched
	}
	return PhaseObserved
}
