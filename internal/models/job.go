package models

import "time"

// Job statuses, in the order a successful job passes through them.
const (
	StatusValidating = "VALIDATING"
	StatusProcessing = "PROCESSING"
	StatusComplete   = "COMPLETE"
	StatusFailed     = "FAILED"
)

// Job is the Firestore record of one tool invocation. RequestHash identifies
// the operation, its parameters and the input bytes.
type Job struct {
	ID           string    `firestore:"-" json:"id"`
	RequestHash  string    `firestore:"requestHash,omitempty" json:"requestHash"`
	Operation    string    `firestore:"operation,omitempty" json:"operation"`
	Status       string    `firestore:"status,omitempty" json:"status"`
	ErrorDetails string    `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	InputCount   int       `firestore:"inputCount" json:"inputCount"`
	OutputCount  int       `firestore:"outputCount" json:"outputCount"`
	OutputURIs   []string  `firestore:"outputUris,omitempty" json:"outputUris,omitempty"`
	Savings      *float64  `firestore:"savings,omitempty" json:"savings,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty" json:"createdAt"`
	CompletedAt  time.Time `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
}
