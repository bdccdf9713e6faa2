package telemetry

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkshort/internal/messaging"
	"github.com/serroba/linkshort/internal/metrics"
	"go.uber.org/zap"
)

// Sender delivers a single event to its final destination.
type Sender interface {
	Send(ctx context.Context, event *Event) error
}

// NewForwarder returns a consumer handler that delivers events through the sender.
//
// Delivery is at most once: failures are logged and the event is dropped,
// so the handler never asks the transport for a redelivery.
func NewForwarder(sender Sender, logger *zap.Logger, m *metrics.Metrics) messaging.Handler[Event] {
	return func(ctx context.Context, event *Event) error {
		if err := sender.Send(ctx, event); err != nil {
			m.TelemetryEvent(metrics.TelemetryFailed)
			logger.Error("failed to send log to collector",
				zap.String("level", string(event.Level)),
				zap.String("package", event.Package),
				zap.String("message", event.Message),
				zap.Error(err),
			)

			return nil
		}

		m.TelemetryEvent(metrics.TelemetryDelivered)

		return nil
	}
}

// NewForwardingConsumer subscribes the forwarder to the telemetry topic.
func NewForwardingConsumer(
	subscriber message.Subscriber,
	sender Sender,
	logger *zap.Logger,
	m *metrics.Metrics,
) *messaging.Consumer[Event] {
	return messaging.NewConsumer(subscriber, TopicLogs, NewForwarder(sender, logger, m), logger)
}
