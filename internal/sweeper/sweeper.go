// Package sweeper periodically expires OTP requests past their deadline and deletes stale link
// tokens. Both steps use the same conditional updates as the request handlers, so a sweep racing
// an answer or a link never overrides it.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RequestExpirer moves overdue requests to expired (e.g. *otp/service.Service).
type RequestExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// LinkerPruner deletes link tokens past their deadline (e.g. *linker.Service).
type LinkerPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper runs one sweep per interval until its context ends.
type Sweeper struct {
	requests RequestExpirer
	linkers  LinkerPruner
	interval time.Duration
	logger   *zap.Logger
}

// New returns a Sweeper. Either step may be nil to skip it. A non-positive interval means one minute.
func New(requests RequestExpirer, linkers LinkerPruner, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{requests: requests, linkers: linkers, interval: interval, logger: logger.Named("sweeper")}
}

// Run sweeps immediately and then every interval. It returns nil once ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		s.Sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Sweep runs both steps once. Failures are logged; a failing step does not skip the other.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if s.requests != nil {
		if _, err := s.requests.ExpireOverdue(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("expire overdue requests", zap.Error(err))
		}
	}
	if s.linkers != nil {
		n, err := s.linkers.DeleteExpired(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Error("delete expired linkers", zap.Error(err))
		case n > 0:
			s.logger.Info("deleted expired linkers", zap.Int64("count", n))
		}
	}
}
