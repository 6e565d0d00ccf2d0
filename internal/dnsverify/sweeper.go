package dnsverify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ctn/pkg/requestcontext"
)

// Sweeper periodically runs the reverification check and the terminal-token
// cleanup. Both operations are idempotent and safe to run from multiple
// instances, so the sweeper needs no leader election.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper constructs a sweeper over the verification service.
func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping at the configured interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs both maintenance passes concurrently with a shared batch time,
// so every row examined in one pass is judged against the same instant.
func (s *Sweeper) sweep(ctx context.Context) {
	batchCtx := requestcontext.WithTime(ctx, time.Now())
	g, gctx := errgroup.WithContext(batchCtx)

	g.Go(func() error {
		downgraded, err := s.service.CheckReverificationDue(gctx)
		if err != nil {
			return err
		}
		if downgraded > 0 {
			s.logger.InfoContext(gctx, "reverification sweep downgraded organizations",
				"count", downgraded,
			)
		}
		return nil
	})

	g.Go(func() error {
		removed, err := s.service.CleanupExpiredTokens(gctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.logger.InfoContext(gctx, "token retention cleanup removed tokens",
				"count", removed,
			)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "verification sweep failed", "error", err)
	}
}
