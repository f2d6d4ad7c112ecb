package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the configured job loops together and stops them all
// when the context is cancelled.
type Orchestrator struct {
	sync    *LiveSyncJob // optional
	settle  *SettlementJob
	archive *ArchiveJob // optional

	syncInterval   time.Duration
	settleInterval time.Duration
	archiveHourUTC int

	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator. sync, settle and archive may each
// be nil to leave that loop out.
func NewOrchestrator(
	sync *LiveSyncJob,
	settle *SettlementJob,
	archive *ArchiveJob,
	syncInterval, settleInterval time.Duration,
	archiveHourUTC int,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sync:           sync,
		settle:         settle,
		archive:        archive,
		syncInterval:   syncInterval,
		settleInterval: settleInterval,
		archiveHourUTC: archiveHourUTC,
		logger:         logger.With(slog.String("component", "orchestrator")),
	}
}

// Run blocks until the context is cancelled or a loop exits. Loop errors
// other than context cancellation are returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if o.sync != nil {
		o.logger.InfoContext(ctx, "starting sync loop", slog.Duration("interval", o.syncInterval))
		g.Go(func() error { return o.sync.RunLoop(gctx, o.syncInterval) })
	}
	if o.settle != nil {
		o.logger.InfoContext(ctx, "starting settlement loop", slog.Duration("interval", o.settleInterval))
		g.Go(func() error { return o.settle.RunLoop(gctx, o.settleInterval) })
	}
	if o.archive != nil {
		o.logger.InfoContext(ctx, "starting archive loop", slog.Int("hour_utc", o.archiveHourUTC))
		g.Go(func() error { return o.archive.RunDaily(gctx, o.archiveHourUTC) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
