package bootstrap

import (
	"context"
	"fmt"

	"resultsink/internal/broker"
	"resultsink/internal/config"
	"resultsink/internal/logger"
)

type Base struct {
	Config    *config.Config
	Logger    logger.Logger
	Consumers []broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitConsumers creates one consumer per configured bus topic. kafka-go
// readers are bound to a single topic, so every topic gets its own
// reader within the same consumer group.
func (b *Base) InitConsumers(serviceName string) error {
	for range b.Config.Broker.Kafka.Topics {
		consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
		if err != nil {
			b.closeConsumers()
			return fmt.Errorf("failed to create consumer: %w", err)
		}
		if serviceName != "" {
			consumer.SetServiceName(serviceName)
		}
		b.Consumers = append(b.Consumers, consumer)
	}
	return nil
}

func (b *Base) closeConsumers() {
	for _, c := range b.Consumers {
		_ = c.Close()
	}
	b.Consumers = nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	for _, c := range b.Consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
