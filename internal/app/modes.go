package app

import (
	"context"
	"fmt"

	"github.com/bangerpicks/backend/internal/pipeline"
)

// buildSyncJob constructs the live-sync job from wired dependencies.
func (a *App) buildSyncJob(deps *Dependencies) *pipeline.LiveSyncJob {
	return pipeline.NewLiveSyncJob(
		deps.ContestStore,
		deps.MatchStore,
		deps.Provider,
		deps.LiveCache,
		deps.LockManager,
		a.cfg.Jobs.InvocationTimeout.Duration,
		a.logger,
	)
}

// buildSettleJob constructs the settlement job from wired dependencies.
func (a *App) buildSettleJob(deps *Dependencies) *pipeline.SettlementJob {
	return pipeline.NewSettlementJob(
		deps.ContestStore,
		deps.MatchStore,
		deps.EntryStore,
		deps.AggregateStore,
		deps.Provider,
		deps.AuditStore,
		deps.LockManager,
		deps.Notifier,
		a.cfg.Jobs.InvocationTimeout.Duration,
		a.logger,
	)
}

// buildArchiveJob constructs the archive job, or returns nil when archiving
// is disabled.
func (a *App) buildArchiveJob(deps *Dependencies) *pipeline.ArchiveJob {
	if deps.Archiver == nil {
		return nil
	}
	return pipeline.NewArchiveJob(deps.Archiver, a.cfg.Jobs.ArchiveRetentionDays, a.logger)
}

// SyncMode runs only the live-sync loop.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode")
	orch := pipeline.NewOrchestrator(
		a.buildSyncJob(deps), nil, nil,
		a.cfg.Jobs.SyncInterval.Duration, 0, 0,
		a.logger,
	)
	return orch.Run(ctx)
}

// SettleMode runs only the settlement loop, plus the archiver when enabled.
func (a *App) SettleMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting settle mode")
	orch := pipeline.NewOrchestrator(
		nil, a.buildSettleJob(deps), a.buildArchiveJob(deps),
		0, a.cfg.Jobs.SettleInterval.Duration, a.cfg.Jobs.ArchiveHourUTC,
		a.logger,
	)
	return orch.Run(ctx)
}

// FullMode runs both job loops and the archiver when enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	orch := pipeline.NewOrchestrator(
		a.buildSyncJob(deps), a.buildSettleJob(deps), a.buildArchiveJob(deps),
		a.cfg.Jobs.SyncInterval.Duration, a.cfg.Jobs.SettleInterval.Duration, a.cfg.Jobs.ArchiveHourUTC,
		a.logger,
	)
	return orch.Run(ctx)
}

// SyncOnceMode runs a single sync invocation and exits. Useful for external
// schedulers and smoke tests.
func (a *App) SyncOnceMode(ctx context.Context, deps *Dependencies) error {
	summary, err := a.buildSyncJob(deps).Run(ctx)
	if err != nil {
		return err
	}
	if len(summary.Errors) > 0 {
		return fmt.Errorf("sync completed with %d contest error(s)", len(summary.Errors))
	}
	return nil
}

// SettleOnceMode runs a single settlement invocation and exits.
func (a *App) SettleOnceMode(ctx context.Context, deps *Dependencies) error {
	summary, err := a.buildSettleJob(deps).Run(ctx)
	if err != nil {
		return err
	}
	if len(summary.Errors) > 0 {
		return fmt.Errorf("settlement completed with %d contest error(s)", len(summary.Errors))
	}
	return nil
}
