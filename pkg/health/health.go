package health

import "time"

// Result represents the outcome of a single endpoint probe.
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}
