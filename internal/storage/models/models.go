package models

import "time"

// RequestLog is one row of the request analytics trail: which service
// answered, how it was routed and how long it took. This is operational
// telemetry, separate from the interaction memory used for answer reuse.
type RequestLog struct {
	ID           string
	UserID       string
	SessionID    string
	Question     string
	Answer       string
	ServiceName  string
	ContextLabel string
	Confidence   float64
	Strategy     string
	LatencyMS    int
	CreatedAt    time.Time
}
