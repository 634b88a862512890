package audit

import "time"

// Event is emitted from domain logic to capture administrative actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID            string
	Timestamp     time.Time
	ActorID       string
	SubjectID     string
	GrantKey      string
	Action        string
	Deleted       int
	RequestID     string
	ClientOS      string
	ClientBrowser string
}
