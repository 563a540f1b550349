package updater

import (
	"context"

	"resultsink/internal/resultsdb"
	"resultsink/internal/umb"
	"resultsink/pkg/logging"
	"resultsink/pkg/metrics"
)

// Handle is the broker entry point. It decides the fate of each
// message: malformed messages and store rejections are logged and
// dropped so the stream keeps moving, while transport failures
// propagate so the broker can redeliver.
func (s *Service) Handle(ctx context.Context, raw umb.RawMessage) error {
	ctx = logging.WithMessageID(ctx, raw.ID())
	ctx = logging.WithTopic(ctx, raw.Topic)

	format := s.Classify(raw)
	err := s.Process(ctx, raw)
	if err == nil {
		metrics.MessagesTotal.WithLabelValues(format, "ok").Inc()
		return nil
	}

	switch {
	case umb.IsInvalidMessage(err):
		s.log.WarnwCtx(ctx, "Dropping invalid message",
			"error", err,
		)
		metrics.MessagesTotal.WithLabelValues(format, "invalid").Inc()
		metrics.DroppedMessagesTotal.WithLabelValues("invalid_message").Inc()
		return nil

	case resultsdb.IsCreateResultError(err):
		s.log.ErrorwCtx(ctx, "Results store rejected the result",
			"error", err,
		)
		metrics.MessagesTotal.WithLabelValues(format, "rejected").Inc()
		metrics.DroppedMessagesTotal.WithLabelValues("store_rejected").Inc()
		return nil

	case resultsdb.IsTransportError(err):
		metrics.MessagesTotal.WithLabelValues(format, "transport_error").Inc()
		return err
	}

	// Unexpected failures are logged but never block the stream.
	s.log.ErrorwCtx(ctx, "Unexpected error while processing message",
		"error", err,
	)
	metrics.MessagesTotal.WithLabelValues(format, "error").Inc()
	metrics.DroppedMessagesTotal.WithLabelValues("unexpected_error").Inc()
	return nil
}
