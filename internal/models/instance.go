package models

// EventType is the kind of source event that last wrote a record
type EventType string

const (
	EventTypeStateChange      EventType = "state-change"
	EventTypeSpotLaunch       EventType = "spot-launch"
	EventTypeSpotInterruption EventType = "spot-interruption"
)

// InstanceState is the EC2 state tracked on a record
type InstanceState string

const (
	StateRunning    InstanceState = "running"
	StateTerminated InstanceState = "terminated"
)

// Lifecycle values reported by EC2 for an instance
const (
	LifecycleOnDemand = "on-demand"
	LifecycleSpot     = "spot"
)

// Tag is an EC2 tag as stored on the record and in the archive
type Tag struct {
	Key   string `json:"Key" dynamodbav:"Key"`
	Value string `json:"Value" dynamodbav:"Value"`
}

// InstanceRecord is the canonical per-instance aggregate.
// Every field except InstanceID is optional; a zero value means the
// attribute has not been written yet.
type InstanceRecord struct {
	InstanceID string `json:"InstanceId" dynamodbav:"InstanceId"`

	// Descriptive attributes filled in by enrichment
	Region            string `json:"Region,omitempty" dynamodbav:"Region,omitempty"`
	AvailabilityZone  string `json:"AvailabilityZone,omitempty" dynamodbav:"AvailabilityZone,omitempty"`
	InstanceType      string `json:"InstanceType,omitempty" dynamodbav:"InstanceType,omitempty"`
	InstanceLifecycle string `json:"InstanceLifecycle,omitempty" dynamodbav:"InstanceLifecycle,omitempty"`
	Tags              []Tag  `json:"Tags,omitempty" dynamodbav:"Tags,omitempty"`
	MetadataEnriched  bool   `json:"InstanceMetadataEnriched,omitempty" dynamodbav:"InstanceMetadataEnriched,omitempty"`

	// Last applied event
	LastEventTime string    `json:"LastEventTime,omitempty" dynamodbav:"LastEventTime,omitempty"`
	LastEventType EventType `json:"LastEventType,omitempty" dynamodbav:"LastEventType,omitempty"`

	// State changes
	State          InstanceState `json:"State,omitempty" dynamodbav:"State,omitempty"`
	LaunchedTime   string        `json:"LaunchedTime,omitempty" dynamodbav:"LaunchedTime,omitempty"`
	TerminatedTime string        `json:"TerminatedTime,omitempty" dynamodbav:"TerminatedTime,omitempty"`

	// Spot
	SpotInstanceRequestID     string `json:"SpotInstanceRequestId,omitempty" dynamodbav:"SpotInstanceRequestId,omitempty"`
	Interrupted               bool   `json:"Interrupted,omitempty" dynamodbav:"Interrupted,omitempty"`
	InterruptedInstanceAction string `json:"InterruptedInstanceAction,omitempty" dynamodbav:"InterruptedInstanceAction,omitempty"`
	InterruptionTime          string `json:"InterruptionTime,omitempty" dynamodbav:"InterruptionTime,omitempty"`

	// Bookkeeping
	FirstObservedTime string `json:"FirstObservedTime,omitempty" dynamodbav:"FirstObservedTime,omitempty"`
	ObservationID     string `json:"ObservationId,omitempty" dynamodbav:"ObservationId,omitempty"`
	ExpirationTime    int64  `json:"ExpirationTime,omitempty" dynamodbav:"ExpirationTime,omitempty"`
}

// RecordPatch is a sparse set of fields carried by one partial update.
// A nil field is not written.
type RecordPatch struct {
	Region            *string
	AvailabilityZone  *string
	InstanceType      *string
	InstanceLifecycle *string
	Tags              *[]Tag
	MetadataEnriched  *bool

	LastEventTime *string
	LastEventType *EventType

	State          *InstanceState
	LaunchedTime   *string
	TerminatedTime *string

	SpotInstanceRequestID     *string
	Interrupted               *bool
	InterruptedInstanceAction *string
	InterruptionTime          *string

	ExpirationTime *int64

	// FirstObservedTime and ObservationID are only written when absent
	FirstObservedTime *string
	ObservationID     *string
}

// WithoutContended returns a copy of the patch without the fields that
// every event kind competes for.
func (p RecordPatch) WithoutContended() RecordPatch {
	p.LastEventTime = nil
	p.LastEventType = nil
	p.State = nil
	return p
}

// Apply merges the patch onto rec in place, honoring write-once fields
func (p RecordPatch) Apply(rec *InstanceRecord) {
	setString(&rec.Region, p.Region)
	setString(&rec.AvailabilityZone, p.AvailabilityZone)
	setString(&rec.InstanceType, p.InstanceType)
	setString(&rec.InstanceLifecycle, p.InstanceLifecycle)
	if p.Tags != nil {
		rec.Tags = append([]Tag(nil), (*p.Tags)...)
	}
	if p.MetadataEnriched != nil {
		rec.MetadataEnriched = *p.MetadataEnriched
	}
	setString(&rec.LastEventTime, p.LastEventTime)
	if p.LastEventType != nil {
		rec.LastEventType = *p.LastEventType
	}
	if p.State != nil {
		rec.State = *p.State
	}
	setString(&rec.LaunchedTime, p.LaunchedTime)
	setString(&rec.TerminatedTime, p.TerminatedTime)
	setString(&rec.SpotInstanceRequestID, p.SpotInstanceRequestID)
	if p.Interrupted != nil {
		rec.Interrupted = *p.Interrupted
	}
	setString(&rec.InterruptedInstanceAction, p.InterruptedInstanceAction)
	setString(&rec.InterruptionTime, p.InterruptionTime)
	if p.ExpirationTime != nil {
		rec.ExpirationTime = *p.ExpirationTime
	}
	if rec.FirstObservedTime == "" {
		setString(&rec.FirstObservedTime, p.FirstObservedTime)
	}
	if rec.ObservationID == "" {
		setString(&rec.ObservationID, p.ObservationID)
	}
}

// Clone returns a deep copy of the record
func (r InstanceRecord) Clone() InstanceRecord {
	if r.Tags != nil {
		r.Tags = append([]Tag(nil), r.Tags...)
	}
	return r
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// ArchivalTask is the input of one archival run
type ArchivalTask struct {
	Instance InstanceRecord `json:"instance"`
}
