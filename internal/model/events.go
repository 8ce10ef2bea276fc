package model

import "time"

// Status classifies a stage outcome in a log event.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusDegraded Status = "degraded"
	StatusFailure  Status = "failure"
)

// LogEvent is one appended pipeline event. Each event is self-contained and
// written to its own file, never mutated afterwards.
type LogEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Stage     string             `json:"stage"`
	RunID     string             `json:"run_id"`
	Status    Status             `json:"status"`
	Metrics   map[string]float64 `json:"metrics"`
	Message   string             `json:"message"`
}
