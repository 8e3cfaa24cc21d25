// Package common provides shared utilities including stage timing.
package common

import (
	"fmt"
	"strings"
	"time"
)

// StageTimer measures one named pipeline stage.
type StageTimer struct {
	name     string
	start    time.Time
	duration time.Duration
}

// NewStageTimer starts a timer for the given stage.
func NewStageTimer(name string) *StageTimer {
	return &StageTimer{name: name, start: time.Now()}
}

// Stop stops the timer and returns it for recording.
func (t *StageTimer) Stop() *StageTimer {
	t.duration = time.Since(t.start)
	return t
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *StageTimer) Duration() time.Duration {
	return t.duration
}

// Name returns the stage name.
func (t *StageTimer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *StageTimer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// StageTimings accumulates per-stage durations of one run in stage order.
type StageTimings map[string]time.Duration

// Record stores a stopped timer's duration under its stage name.
func (s StageTimings) Record(t *StageTimer) {
	s[t.Name()] = t.Duration()
}

// Total returns the sum of all recorded stage durations.
func (s StageTimings) Total() time.Duration {
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total
}

// String renders the timings as "stage: duration" pairs.
func (s StageTimings) String() string {
	parts := make([]string, 0, len(s))
	for name, d := range s {
		parts = append(parts, fmt.Sprintf("%s: %v", name, d))
	}
	return strings.Join(parts, ", ")
}
