package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"resultsink/internal/config"
	"resultsink/internal/constants"
	"resultsink/internal/logger"
	"resultsink/internal/umb"
	"resultsink/pkg/errors"
	"resultsink/pkg/logging"
	"resultsink/pkg/metrics"
	"resultsink/pkg/retry"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg umb.RawMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(msg.ID()),
			Value: body,
			Time:  time.Now(),
		},
	)

	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      *kafka.Reader
	logger      logger.Logger
	dlqProducer Producer
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	consumer := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
	}

	if cfg.DLQTopic != "" {
		consumer.dlqProducer = NewKafkaProducer(cfg, log)
	}

	return consumer
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

// Consume reads bus frames from one Kafka topic and feeds them to the
// handler. Offsets commit only after the handler (and its retry budget)
// is done, so an unclean exit redelivers in-flight messages. Without a
// DLQ an exhausted retry budget stops the consumer; the bus frame stays
// uncommitted for redelivery.
func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(consumeCtx, "Started consuming",
		"topic", topic,
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(consumeCtx, "Stopped consuming",
					"topic", topic,
					"reason", "context canceled",
				)
				return ctx.Err()
			}
			c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
				"error", err,
				"topic", topic,
			)
			time.Sleep(time.Second)
			continue
		}

		raw, err := decodeFrame(topic, m)
		if err != nil {
			c.logger.ErrorwCtx(consumeCtx, "Failed to decode bus frame",
				"error", err,
				"topic", topic,
			)
			_ = c.reader.CommitMessages(ctx, m)
			continue
		}

		msgCtx := logging.WithMessageID(consumeCtx, raw.ID())
		msgCtx = logging.WithTopic(msgCtx, raw.Topic)

		if err := c.processMessageWithRetry(msgCtx, raw, handler, topic); err != nil {
			c.logger.ErrorwCtx(msgCtx, "Failed to process message after retries",
				"error", err,
				"topic", topic,
			)
			if c.dlqProducer != nil && c.cfg.DLQTopic != "" {
				if dlqErr := c.sendToDLQ(msgCtx, raw, err, topic); dlqErr != nil {
					c.logger.ErrorwCtx(msgCtx, "Failed to send message to DLQ",
						"error", dlqErr,
						"topic", topic,
					)
				}
				_ = c.reader.CommitMessages(ctx, m)
			} else {
				return fmt.Errorf("processing %s message %s: %w", topic, raw.ID(), err)
			}
		} else {
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqProducer != nil {
		if closeErr := c.dlqProducer.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			}
		}
	}
	c.wg.Wait()
	return err
}

// decodeFrame unpacks the JSON bus frame carried in the Kafka record.
// The frame's own bus topic wins; the Kafka topic is a fallback for
// producers that only forward the payload. Kafka record headers fill in
// bus headers the frame did not carry.
func decodeFrame(kafkaTopic string, m kafka.Message) (umb.RawMessage, error) {
	var raw umb.RawMessage
	if err := json.Unmarshal(m.Value, &raw); err != nil {
		return umb.RawMessage{}, err
	}
	if raw.Topic == "" {
		raw.Topic = kafkaTopic
	}
	if raw.Headers == nil {
		raw.Headers = make(map[string]string)
	}
	for _, h := range m.Headers {
		if _, ok := raw.Headers[h.Key]; !ok {
			raw.Headers[h.Key] = string(h.Value)
		}
	}
	return raw, nil
}

func (c *KafkaConsumer) processMessageWithRetry(ctx context.Context, raw umb.RawMessage, handler HandlerFunc, topic string) error {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	if c.cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = c.cfg.Retry.MaxAttempts
	}
	if c.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = c.cfg.Retry.InitialInterval
	}
	if c.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = c.cfg.Retry.MaxInterval
	}
	if c.cfg.Retry.Multiplier > 0 {
		policy.Multiplier = c.cfg.Retry.Multiplier
	}
	if c.cfg.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = c.cfg.Retry.MaxElapsedTime
	}

	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, raw)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) sendToDLQ(ctx context.Context, raw umb.RawMessage, originalErr error, sourceTopic string) error {
	if raw.Headers == nil {
		raw.Headers = make(map[string]string)
	}
	raw.Headers["dlq-reason"] = originalErr.Error()
	raw.Headers["dlq-source-topic"] = sourceTopic
	raw.Headers["dlq-timestamp"] = time.Now().UTC().Format(time.RFC3339)

	err := c.dlqProducer.Publish(ctx, c.cfg.DLQTopic, raw)
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	metrics.DLQMessagesTotal.WithLabelValues(c.serviceName, sourceTopic, "max_retries_exceeded").Inc()
	c.logger.InfowCtx(ctx, "Message sent to DLQ",
		"source_topic", sourceTopic,
		"dlq_topic", c.cfg.DLQTopic,
		"reason", originalErr.Error(),
	)

	return nil
}
