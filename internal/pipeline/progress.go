package pipeline

import (
	"log/slog"
)

// ProgressEvent is one advisory progress update. Percentage is in [0,100] and
// never decreases within a run; it is reporting only and drives no control
// flow.
type ProgressEvent struct {
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// Sink receives progress events. Sinks are invoked synchronously from the
// worker goroutine and must be non-blocking or already thread-safe.
type Sink interface {
	Publish(event ProgressEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event ProgressEvent)

func (f SinkFunc) Publish(event ProgressEvent) { f(event) }

// NoOpSink discards all events. Useful as a default when no progress
// reporting is needed.
type NoOpSink struct{}

func (NoOpSink) Publish(ProgressEvent) {}

// LogSink logs progress events using slog.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a log-based progress sink.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: level}
}

func (l *LogSink) Publish(event ProgressEvent) {
	l.logger.Log(nil, l.level, "progress update",
		"percentage", event.Percentage,
		"message", event.Message,
	)
}

// MultiSink fans one event out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that publishes to every given sink in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Add appends another sink.
func (m *MultiSink) Add(sink Sink) {
	m.sinks = append(m.sinks, sink)
}

func (m *MultiSink) Publish(event ProgressEvent) {
	for _, s := range m.sinks {
		s.Publish(event)
	}
}

// reporter clamps outgoing percentages so a run's progress is monotonically
// non-decreasing even when a stage reports out of order.
type reporter struct {
	sink Sink
	last int
}

func newReporter(sink Sink) *reporter {
	if sink == nil {
		sink = NoOpSink{}
	}
	return &reporter{sink: sink}
}

func (r *reporter) report(percentage int, message string) {
	if percentage > 100 {
		percentage = 100
	}
	if percentage < r.last {
		percentage = r.last
	}
	r.last = percentage
	r.sink.Publish(ProgressEvent{Percentage: percentage, Message: message})
}

// rescale maps a percentage in [0,100] linearly into [lo,hi]. Stage-internal
// progress uses it to fit into the stage's slice of the run.
func rescale(percentage, lo, hi int) int {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	return lo + (hi-lo)*percentage/100
}
