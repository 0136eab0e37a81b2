package ports

import (
	"time"

	"climateprep/domain/core"
)

// ProgressStatus of a pipeline stage
type ProgressStatus string

const (
	ProgressStarted   ProgressStatus = "started"
	ProgressCompleted ProgressStatus = "completed"
	ProgressFailed    ProgressStatus = "failed"
)

// ProgressEvent is emitted at each pipeline stage boundary
type ProgressEvent struct {
	SessionID core.SessionID `json:"session_id"`
	Filename  string         `json:"filename"`
	Stage     string         `json:"stage"`
	Status    ProgressStatus `json:"status"`
	Progress  float64        `json:"progress"`
	Message   string         `json:"message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProgressReporter receives pipeline progress. Implementations must not block.
type ProgressReporter interface {
	Report(event ProgressEvent)
}

// NoopProgress discards every event
type NoopProgress struct{}

// Report implements ProgressReporter
func (NoopProgress) Report(ProgressEvent) {}
