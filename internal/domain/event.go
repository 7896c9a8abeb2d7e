package domain

import "time"

// EventType tags a ProgressEvent.
type EventType string

const (
	EventSubmitted EventType = "taskId"
	EventHeartbeat EventType = "heartbeat"
	EventResult    EventType = "result"
	EventError     EventType = "error"
)

// ProgressEvent is one step of a job-handling stream. Only the fields that
// belong to Type are set.
type ProgressEvent struct {
	Type        EventType
	JobID       string
	Attempt     int
	MaxAttempts int
	Assets      []AssetRef
	Seed        int64
	Message     string
}

// Terminal reports whether the event closes the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventResult || e.Type == EventError
}

// Completion describes a finished job for downstream consumers.
type Completion struct {
	JobID      string         `json:"taskId"`
	Kind       JobKind        `json:"kind"`
	State      JobState       `json:"state"`
	Assets     []AssetRef     `json:"assets,omitempty"`
	Entries    []GalleryEntry `json:"entries,omitempty"`
	Message    string         `json:"message,omitempty"`
	FinishedAt time.Time      `json:"finishedAt"`
}
