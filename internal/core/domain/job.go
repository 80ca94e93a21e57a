package domain

import "time"

// JobStatus tracks the lifecycle of one asynchronous operation. Transitions
// are monotonic: pending -> running -> {completed | failed}, never out of a
// terminal state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the record of one tracked long-running operation. Job state is
// best-effort telemetry kept for the process lifetime, not a durability
// guarantee.
type Job struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Status    JobStatus      `json:"status"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
