package event

import "time"

// Type identifies the event type string.
type Type string

// Event is the persisted envelope of a domain event.
type Event struct {
	PatientID     string
	Seq           uint64
	Type          Type
	Timestamp     time.Time
	ActorID       string
	RequestID     string
	CorrelationID string
	CausationID   string
	EntityType    string
	EntityID      string
	PayloadJSON   []byte
}
