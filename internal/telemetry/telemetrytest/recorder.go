// Package telemetrytest provides an in-memory telemetry emitter for tests.
package telemetrytest

import (
	"sync"

	"github.com/serroba/linkshort/internal/telemetry"
)

// Recorder captures emitted events synchronously.
type Recorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

// Emit records the event.
func (r *Recorder) Emit(level telemetry.Level, pkg, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, telemetry.Event{
		Stack:   telemetry.StackBackend,
		Level:   level,
		Package: pkg,
		Message: message,
	})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []telemetry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]telemetry.Event(nil), r.events...)
}

// Levels returns the level of each recorded event, in order.
func (r *Recorder) Levels() []telemetry.Level {
	events := r.Events()
	levels := make([]telemetry.Level, len(events))

	for i, e := range events {
		levels[i] = e.Level
	}

	return levels
}

// Last returns the most recent event, or the zero Event when none was recorded.
func (r *Recorder) Last() telemetry.Event {
	events := r.Events()
	if len(events) == 0 {
		return telemetry.Event{}
	}

	return events[len(events)-1]
}
