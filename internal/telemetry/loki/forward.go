package loki

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// pushTimeout bounds a single push so a slow Loki does not stall the consumer.
const pushTimeout = 10 * time.Second

// MessageReader reads committed messages from a topic (e.g. *kafka.Reader).
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Forward pushes every message read from r to c until ctx is done. Read and push failures are
// logged and skipped; the event bus is best-effort.
func Forward(ctx context.Context, r MessageReader, c *Client, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("kafka read", zap.Error(err))
			continue
		}
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := c.PushEventJSON(pushCtx, msg.Value); err != nil {
			logger.Warn("loki push", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		cancel()
	}
}
