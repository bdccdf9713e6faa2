package telemetry

import (
	"context"
	"sync"

	"github.com/serroba/linkshort/internal/messaging"
	"github.com/serroba/linkshort/internal/metrics"
	"go.uber.org/zap"
)

// DefaultMaxInFlight bounds the number of detached deliveries.
const DefaultMaxInFlight = 256

// Emitter hands telemetry events to a publisher without making the caller wait.
//
// Each Emit runs the publish on its own goroutine. At most maxInFlight
// publishes run at once; events beyond that are dropped and logged locally.
// Emit never returns an error and never blocks on the transport.
//
// A slot is held until the publisher returns. With the in-process channel
// that happens once the forwarder has acked the event, so a slow collector
// leads to drops instead of a growing backlog.
type Emitter struct {
	stack   string
	publish messaging.Publish[Event]
	logger  *zap.Logger
	metrics *metrics.Metrics
	slots   chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewEmitter creates an emitter tagging every event with the given stack.
// A non-positive maxInFlight falls back to DefaultMaxInFlight.
func NewEmitter(
	stack string,
	publish messaging.Publish[Event],
	maxInFlight int,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Emitter {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}

	return &Emitter{
		stack:   stack,
		publish: publish,
		logger:  logger,
		metrics: m,
		slots:   make(chan struct{}, maxInFlight),
	}
}

// Emit sends a telemetry event in the background.
func (e *Emitter) Emit(level Level, pkg, message string) {
	event := &Event{
		Stack:   e.stack,
		Level:   level,
		Package: pkg,
		Message: message,
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.drop(event, "emitter closed")

		return
	}

	select {
	case e.slots <- struct{}{}:
	default:
		e.drop(event, "too many events in flight")

		return
	}

	e.wg.Add(1)

	go e.deliver(event)
}

func (e *Emitter) deliver(event *Event) {
	defer func() {
		<-e.slots
		e.wg.Done()
	}()

	if err := e.publish(context.Background(), event); err != nil {
		e.metrics.TelemetryEvent(metrics.TelemetryFailed)
		e.logger.Error("failed to publish telemetry event",
			zap.String("level", string(event.Level)),
			zap.String("package", event.Package),
			zap.String("message", event.Message),
			zap.Error(err),
		)
	}
}

func (e *Emitter) drop(event *Event, reason string) {
	e.metrics.TelemetryEvent(metrics.TelemetryDropped)
	e.logger.Warn("dropping telemetry event",
		zap.String("reason", reason),
		zap.String("level", string(event.Level)),
		zap.String("package", event.Package),
		zap.String("message", event.Message),
	)
}

// Shutdown stops accepting events and waits for in-flight publishes.
func (e *Emitter) Shutdown() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()

	return nil
}
