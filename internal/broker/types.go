package broker

import (
	"context"

	"resultsink/internal/umb"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg umb.RawMessage) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc processes one decoded bus message. A returned error means
// the message could not be delivered downstream and should be retried;
// handlers swallow per-message validation failures themselves.
type HandlerFunc func(ctx context.Context, msg umb.RawMessage) error
