package models

// InstanceDescription holds the descriptive attributes returned by the
// EC2 instance lookup used for enrichment
type InstanceDescription struct {
	InstanceID        string `json:"InstanceId"`
	InstanceType      string `json:"InstanceType"`
	InstanceLifecycle string `json:"InstanceLifecycle,omitempty"` // "on-demand" when EC2 omits it
	AvailabilityZone  string `json:"AvailabilityZone"`
	Tags              []Tag  `json:"Tags,omitempty"`
}
