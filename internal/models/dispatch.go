package models

// DispatchStatus is the ledger state of a dedupe key
type DispatchStatus string

const (
	DispatchPending    DispatchStatus = "pending"
	DispatchDispatched DispatchStatus = "dispatched"
)

// DispatchEntry is one row of the dispatch ledger. Times are epoch seconds.
type DispatchEntry struct {
	DedupeKey    string         `json:"DedupeKey" dynamodbav:"DedupeKey"`
	InstanceID   string         `json:"InstanceId" dynamodbav:"InstanceId"`
	EventType    EventType      `json:"EventType" dynamodbav:"EventType"`
	EventTime    string         `json:"EventTime" dynamodbav:"EventTime"`
	Status       DispatchStatus `json:"Status" dynamodbav:"Status"`
	ClaimedAt    int64          `json:"ClaimedAt" dynamodbav:"ClaimedAt"`
	Handle       string         `json:"Handle,omitempty" dynamodbav:"Handle,omitempty"`
	DispatchedAt int64          `json:"DispatchedAt,omitempty" dynamodbav:"DispatchedAt,omitempty"`
}
