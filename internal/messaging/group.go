package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable represents a component that can be started and shutdown.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs several consumers sharing one subscriber.
type ConsumerGroup struct {
	consumers  []Runnable
	subscriber message.Subscriber
	logger     *zap.Logger
}

// NewConsumerGroup creates a new consumer group.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers a consumer to the group.
func (g *ConsumerGroup) Add(consumer Runnable) {
	g.consumers = append(g.consumers, consumer)
}

// Start starts all consumers in the group. If one fails, the ones already
// started are shut down again.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, consumer := range g.consumers {
		if err := consumer.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.consumers[j].Shutdown()
			}

			return fmt.Errorf("start consumer %d: %w", i, err)
		}
	}

	g.logger.Info("consumer group started", zap.Int("count", len(g.consumers)))

	return nil
}

// Shutdown stops consumers in reverse start order, then closes the subscriber.
// Every consumer is attempted; all errors are joined.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group")

	var errs []error

	for i := len(g.consumers) - 1; i >= 0; i-- {
		if err := g.consumers[i].Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := g.subscriber.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
