package lifecycle

import "github.com/younsl/lifecycled/internal/models"

// Kind names a normalized update variant
type Kind string

const (
	KindSpotLaunch   Kind = "spot-launch"
	KindRunning      Kind = "running"
	KindTerminated   Kind = "terminated"
	KindInterruption Kind = "spot-interruption"
	KindEnrichment   Kind = "enrichment"
	KindSkip         Kind = "skip"
)

// Update is a normalized partial update. The set of implementations is
// closed: SpotLaunch, Running, Terminated, Interruption, Enrichment, Skip.
type Update interface {
	InstanceID() string
	Kind() Kind
	// EventTime is empty for updates that do not carry LastEventTime
	EventTime() string
	Patch() models.RecordPatch

	sealed()
}

// SpotLaunch is produced by a spot instance request fulfillment
type SpotLaunch struct {
	ID                    string
	Region                string
	Time                  string
	SpotInstanceRequestID string
	ExpirationTime        int64
}

func (u SpotLaunch) InstanceID() string { return u.ID }
func (u SpotLaunch) Kind() Kind         { return KindSpotLaunch }
func (u SpotLaunch) EventTime() string  { return u.Time }
func (SpotLaunch) sealed()              {}

func (u SpotLaunch) Patch() models.RecordPatch {
	return models.RecordPatch{
		Region:                ptr(u.Region),
		LastEventTime:         ptr(u.Time),
		LastEventType:         ptr(models.EventTypeSpotLaunch),
		SpotInstanceRequestID: ptr(u.SpotInstanceRequestID),
		ExpirationTime:        ptr(u.ExpirationTime),
	}
}

// Running is produced by a state-change to running
type Running struct {
	ID             string
	Region         string
	Time           string
	ExpirationTime int64
}

func (u Running) InstanceID() string { return u.ID }
func (u Running) Kind() Kind         { return KindRunning }
func (u Running) EventTime() string  { return u.Time }
func (Running) sealed()              {}

func (u Running) Patch() models.RecordPatch {
	return models.RecordPatch{
		Region:         ptr(u.Region),
		LastEventTime:  ptr(u.Time),
		LastEventType:  ptr(models.EventTypeStateChange),
		State:          ptr(models.StateRunning),
		LaunchedTime:   ptr(u.Time),
		ExpirationTime: ptr(u.ExpirationTime),
	}
}

// Terminated is produced by a state-change to terminated. It never
// refreshes ExpirationTime.
type Terminated struct {
	ID     string
	Region string
	Time   string
}

func (u Terminated) InstanceID() string { return u.ID }
func (u Terminated) Kind() Kind         { return KindTerminated }
func (u Terminated) EventTime() string  { return u.Time }
func (Terminated) sealed()              {}

func (u Terminated) Patch() models.RecordPatch {
	return models.RecordPatch{
		Region:         ptr(u.Region),
		LastEventTime:  ptr(u.Time),
		LastEventType:  ptr(models.EventTypeStateChange),
		State:          ptr(models.StateTerminated),
		TerminatedTime: ptr(u.Time),
	}
}

// Interruption is produced by a spot interruption warning
type Interruption struct {
	ID     string
	Region string
	Time   string
	Action string
}

func (u Interruption) InstanceID() string { return u.ID }
func (u Interruption) Kind() Kind         { return KindInterruption }
func (u Interruption) EventTime() string  { return u.Time }
func (Interruption) sealed()              {}

func (u Interruption) Patch() models.RecordPatch {
	return models.RecordPatch{
		Region:                    ptr(u.Region),
		LastEventTime:             ptr(u.Time),
		LastEventType:             ptr(models.EventTypeSpotInterruption),
		Interrupted:               ptr(true),
		InterruptedInstanceAction: ptr(u.Action),
		InterruptionTime:          ptr(u.Time),
	}
}

// Enrichment carries the result of the instance description lookup
type Enrichment struct {
	Description models.InstanceDescription
}

func (u Enrichment) InstanceID() string { return u.Description.InstanceID }
func (u Enrichment) Kind() Kind         { return KindEnrichment }
func (u Enrichment) EventTime() string  { return "" }
func (Enrichment) sealed()              {}

func (u Enrichment) Patch() models.RecordPatch {
	d := u.Description
	tags := append([]models.Tag{}, d.Tags...)
	return models.RecordPatch{
		InstanceType:      ptr(d.InstanceType),
		InstanceLifecycle: ptr(d.InstanceLifecycle),
		AvailabilityZone:  ptr(d.AvailabilityZone),
		Tags:              &tags,
		MetadataEnriched:  ptr(true),
	}
}

// Skip is a recognized event that this system does not act on
type Skip struct {
	ID     string
	Reason string
}

func (u Skip) InstanceID() string        { return u.ID }
func (u Skip) Kind() Kind                { return KindSkip }
func (u Skip) EventTime() string         { return "" }
func (u Skip) Patch() models.RecordPatch { return models.RecordPatch{} }
func (Skip) sealed()                     {}

func ptr[T any](v T) *T {
	return &v
}
