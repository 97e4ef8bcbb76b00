package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/younsl/lifecycled/internal/models"
)

// EventBridge source and detail types handled by the normalizer
const (
	SourceEC2 = "aws.ec2"

	DetailTypeSpotFulfillment = "EC2 Spot Instance Request Fulfillment"
	DetailTypeStateChange     = "EC2 Instance State-change Notification"
	DetailTypeInterruption    = "EC2 Spot Instance Interruption Warning"
)

const secondsPerDay = 60 * 60 * 24

type stateChangeDetail struct {
	InstanceID string `json:"instance-id"`
	State      string `json:"state"`
}

type spotFulfillmentDetail struct {
	InstanceID            string `json:"instance-id"`
	SpotInstanceRequestID string `json:"spot-instance-request-id"`
}

type interruptionDetail struct {
	InstanceID     string `json:"instance-id"`
	InstanceAction string `json:"instance-action"`
}

// Normalizer maps raw source events to normalized updates
type Normalizer struct {
	retentionDays int
	now           func() time.Time
}

// NewNormalizer creates a Normalizer that stamps ExpirationTime
// retentionDays after now
func NewNormalizer(retentionDays int, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{retentionDays: retentionDays, now: now}
}

// ExpirationTime returns the TTL written by launch and running updates
func (n *Normalizer) ExpirationTime() int64 {
	return n.now().Unix() + int64(n.retentionDays)*secondsPerDay
}

// Normalize converts an EventBridge event into an Update. Events that are
// recognized but not acted on yield Skip. Anything else fails with
// ErrNormalization.
func (n *Normalizer) Normalize(ev events.CloudWatchEvent) (Update, error) {
	if ev.Source != SourceEC2 {
		return nil, n.reject(ev, "", fmt.Errorf("unsupported source %q", ev.Source))
	}
	if ev.Time.IsZero() {
		return nil, n.reject(ev, "", fmt.Errorf("event has no time"))
	}
	eventTime := FormatEventTime(ev.Time)

	switch ev.DetailType {
	case DetailTypeSpotFulfillment:
		var d spotFulfillmentDetail
		if err := n.decode(ev, &d); err != nil {
			return nil, err
		}
		if d.InstanceID == "" || d.SpotInstanceRequestID == "" {
			return nil, n.reject(ev, d.InstanceID, fmt.Errorf("instance-id and spot-instance-request-id are required"))
		}
		return SpotLaunch{
			ID:                    d.InstanceID,
			Region:                ev.Region,
			Time:                  eventTime,
			SpotInstanceRequestID: d.SpotInstanceRequestID,
			ExpirationTime:        n.ExpirationTime(),
		}, nil

	case DetailTypeStateChange:
		var d stateChangeDetail
		if err := n.decode(ev, &d); err != nil {
			return nil, err
		}
		if d.InstanceID == "" || d.State == "" {
			return nil, n.reject(ev, d.InstanceID, fmt.Errorf("instance-id and state are required"))
		}
		switch models.InstanceState(d.State) {
		case models.StateRunning:
			return Running{
				ID:             d.InstanceID,
				Region:         ev.Region,
				Time:           eventTime,
				ExpirationTime: n.ExpirationTime(),
			}, nil
		case models.StateTerminated:
			return Terminated{ID: d.InstanceID, Region: ev.Region, Time: eventTime}, nil
		default:
			return Skip{ID: d.InstanceID, Reason: fmt.Sprintf("state %q is not tracked", d.State)}, nil
		}

	case DetailTypeInterruption:
		var d interruptionDetail
		if err := n.decode(ev, &d); err != nil {
			return nil, err
		}
		if d.InstanceID == "" || d.InstanceAction == "" {
			return nil, n.reject(ev, d.InstanceID, fmt.Errorf("instance-id and instance-action are required"))
		}
		return Interruption{
			ID:     d.InstanceID,
			Region: ev.Region,
			Time:   eventTime,
			Action: d.InstanceAction,
		}, nil
	}

	return nil, n.reject(ev, "", fmt.Errorf("unsupported detail-type %q", ev.DetailType))
}

// Enrich converts a description lookup result into an Enrichment update
func (n *Normalizer) Enrich(desc models.InstanceDescription) Update {
	if desc.InstanceLifecycle == "" {
		desc.InstanceLifecycle = models.LifecycleOnDemand
	}
	return Enrichment{Description: desc}
}

func (n *Normalizer) decode(ev events.CloudWatchEvent, v any) error {
	if len(ev.Detail) == 0 {
		return n.reject(ev, "", fmt.Errorf("event has no detail"))
	}
	if err := json.Unmarshal(ev.Detail, v); err != nil {
		return n.reject(ev, "", fmt.Errorf("error decoding detail: %w", err))
	}
	return nil
}

func (n *Normalizer) reject(ev events.CloudWatchEvent, instanceID string, err error) error {
	eventTime := ""
	if !ev.Time.IsZero() {
		eventTime = FormatEventTime(ev.Time)
	}
	return NewError(ErrNormalization, instanceID, ev.DetailType, eventTime, err)
}

// FormatEventTime renders event timestamps so they order lexically
func FormatEventTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
