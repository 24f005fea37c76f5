package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in a batch run's lifecycle
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// Repo is the repository path this event relates to (empty for job events)
	Repo string `json:"repo,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Job lifecycle events
const (
	JobStarted   EventType = "job.started"
	JobFinished  EventType = "job.finished"
	JobCancelled EventType = "job.cancelled"
	JobAborted   EventType = "job.aborted"
)

// Per-repository events
const (
	RepoStarted   EventType = "repo.started"
	RepoCompleted EventType = "repo.completed"
)

// Scanner events
const (
	ScanStarted  EventType = "scan.started"
	ScanWarning  EventType = "scan.warning"
	ScanFinished EventType = "scan.finished"
)

// NewEvent creates an event with the given type and repository path
func NewEvent(eventType EventType, repo string) Event {
	return Event{
		Type: eventType,
		Repo: repo,
	}
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithError returns a copy of the event with the error message set
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure returns true if this is a failure event type
func (e Event) IsFailure() bool {
	return e.Type == JobAborted || e.Error != ""
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Repo != "" {
		parts = append(parts, e.Repo)
	}
	if e.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%q", e.Error))
	}

	return strings.Join(parts, " ")
}
