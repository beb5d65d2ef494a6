package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"otp-relay/internal/telemetry/domain"
)

// emitTimeout bounds a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long shutdown should wait in Drain before closing the sinks.
const ShutdownDrainDuration = emitTimeout

var inflight sync.WaitGroup

// EmitAsync emits event in its own goroutine so lifecycle code never waits on a sink.
// A nil emitter or event is a no-op. The emit runs on a fresh context: a finished request must
// not cancel the record of what it did.
func EmitAsync(emitter EventEmitter, logger *zap.Logger, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil && logger != nil {
			logger.Warn("telemetry: async emit failed", zap.String("event_type", event.EventType), zap.Error(err))
		}
	}()
}

// Drain waits for every EmitAsync goroutine started so far, or until ctx is done.
func Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
