// Package pipeline contains the two periodic jobs at the heart of the
// backend: live sync, which keeps cached match snapshots fresh for open
// contests, and settlement, which converts final matches into awarded points
// exactly once. Both are driven either by the in-process Orchestrator or by
// an external scheduler through their one-shot Run methods.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bangerpicks/backend/internal/domain"
	"github.com/bangerpicks/backend/internal/outcome"
)

// contestWorkers bounds how many contests one invocation processes
// concurrently. Contests share no mutable state, so this is purely a
// throughput knob.
const contestWorkers = 4

const livesyncLockKey = "jobs:livesync"

// LiveSyncJob refreshes cached match snapshots for every active contest.
// Matches whose cached status is already terminal are never touched again;
// everything else is overwritten with the provider's current copy, including
// the one write that carries a match into its terminal state.
type LiveSyncJob struct {
	contests  domain.ContestStore
	matches   domain.MatchStore
	provider  domain.ResultProvider
	liveCache domain.LiveScoreCache // optional
	locks     domain.LockManager    // optional
	timeout   time.Duration
	logger    *slog.Logger
}

// NewLiveSyncJob creates a LiveSyncJob. liveCache and locks may be nil.
func NewLiveSyncJob(
	contests domain.ContestStore,
	matches domain.MatchStore,
	provider domain.ResultProvider,
	liveCache domain.LiveScoreCache,
	locks domain.LockManager,
	timeout time.Duration,
	logger *slog.Logger,
) *LiveSyncJob {
	return &LiveSyncJob{
		contests:  contests,
		matches:   matches,
		provider:  provider,
		liveCache: liveCache,
		locks:     locks,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "livesync")),
	}
}

// Run executes a single sync invocation. Per-contest failures are isolated:
// they are logged and counted, and never stop sibling contests. Only a
// systemic failure (listing contests) returns an error; the next tick
// retries from scratch.
func (j *LiveSyncJob) Run(ctx context.Context) (SyncSummary, error) {
	start := time.Now()
	var summary SyncSummary

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	if j.locks != nil {
		unlock, err := j.locks.Acquire(ctx, livesyncLockKey, lockTTL(j.timeout))
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			j.logger.InfoContext(ctx, "another sync invocation is running, skipping tick")
			summary.Skipped = true
			return summary, nil
		case err != nil:
			// The lock is an optimization; correctness does not depend on it.
			j.logger.WarnContext(ctx, "could not acquire sync lock, proceeding",
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}

	contests, err := j.contests.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("livesync: list active contests: %w", err)
	}
	if len(contests) == 0 {
		summary.Duration = time.Since(start)
		j.logger.DebugContext(ctx, "no active contests")
		return summary, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contestWorkers)

	for _, contest := range contests {
		g.Go(func() error {
			checked, updated, err := j.syncContest(gctx, contest)

			mu.Lock()
			defer mu.Unlock()
			summary.Contests++
			summary.MatchesChecked += checked
			summary.MatchesUpdated += updated
			if err != nil {
				summary.ContestsFailed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("contest %s: %v", contest.ID, err))
				j.logger.ErrorContext(gctx, "contest sync failed",
					slog.String("contest_id", contest.ID),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)
	j.logger.InfoContext(ctx, "sync invocation complete", slog.String("summary", summary.String()))
	return summary, nil
}

// syncContest refreshes one contest's cached snapshots. It returns how many
// matches were checked and how many were written.
func (j *LiveSyncJob) syncContest(ctx context.Context, contest domain.Contest) (checked, updated int, err error) {
	snaps, err := j.matches.ListByContest(ctx, contest.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list matches: %w", err)
	}
	if len(snaps) == 0 {
		return 0, 0, nil
	}

	// A snapshot cached with a terminal status is immutable; only
	// settlement acts on it from here on.
	pending := make([]domain.MatchSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		if outcome.IsFinal(snap.Status) {
			continue
		}
		pending = append(pending, snap)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	ids := make([]int64, 0, len(pending))
	for _, snap := range pending {
		ids = append(ids, snap.ExternalID)
	}

	fetched, err := j.provider.FetchByIDs(ctx, ids)
	if err != nil {
		return len(pending), 0, fmt.Errorf("fetch snapshots: %w", err)
	}

	byExternal := make(map[int64]domain.MatchSnapshot, len(fetched))
	for _, snap := range fetched {
		byExternal[snap.ExternalID] = snap
	}

	updates := make([]domain.MatchSnapshot, 0, len(pending))
	for _, cached := range pending {
		fresh, ok := byExternal[cached.ExternalID]
		if !ok {
			j.logger.WarnContext(ctx, "provider omitted fixture",
				slog.String("contest_id", contest.ID),
				slog.Int64("external_id", cached.ExternalID),
			)
			continue
		}
		fresh.ID = cached.ID
		updates = append(updates, fresh)
	}

	if len(updates) == 0 {
		return len(pending), 0, nil
	}

	for _, batch := range chunk(updates, domain.MaxBatchOps) {
		if err := j.matches.UpsertSnapshotBatch(ctx, contest.ID, batch); err != nil {
			return len(pending), updated, fmt.Errorf("write snapshot batch: %w", err)
		}
		updated += len(batch)
	}

	if j.liveCache != nil {
		if err := j.liveCache.SetSnapshots(ctx, contest.ID, updates); err != nil {
			j.logger.WarnContext(ctx, "live score cache update failed",
				slog.String("contest_id", contest.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return len(pending), updated, nil
}

// RunLoop runs the job on a repeating interval until the context is
// cancelled. Invocation errors are logged and swallowed; the next tick is a
// fresh start.
func (j *LiveSyncJob) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if _, err := j.Run(ctx); err != nil {
		j.logger.ErrorContext(ctx, "sync invocation failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.InfoContext(ctx, "sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.logger.ErrorContext(ctx, "sync invocation failed", slog.String("error", err.Error()))
			}
		}
	}
}

// lockTTL sizes the job lock to outlive the invocation deadline slightly, so
// a crashed holder's lock expires on its own.
func lockTTL(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 5 * time.Minute
	}
	return timeout + 30*time.Second
}

// chunk splits items into slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
