package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bangerpicks/backend/internal/domain"
	"github.com/bangerpicks/backend/internal/notify"
	"github.com/bangerpicks/backend/internal/outcome"
)

const settlementLockKey = "jobs:settlement"

// SettlementJob awards points for matches that have reached a terminal state.
// Entry updates are conditional on the entry not already being awarded, so an
// entry is settled exactly once no matter how many invocations race over it,
// and aggregate increments are derived only from updates that actually
// applied.
type SettlementJob struct {
	contests   domain.ContestStore
	matches    domain.MatchStore
	entries    domain.EntryStore
	aggregates domain.AggregateStore
	provider   domain.ResultProvider
	audit      domain.AuditStore // optional
	locks      domain.LockManager
	notifier   *notify.Notifier // optional
	timeout    time.Duration
	logger     *slog.Logger
}

// NewSettlementJob creates a SettlementJob. audit, locks and notifier may be
// nil.
func NewSettlementJob(
	contests domain.ContestStore,
	matches domain.MatchStore,
	entries domain.EntryStore,
	aggregates domain.AggregateStore,
	provider domain.ResultProvider,
	audit domain.AuditStore,
	locks domain.LockManager,
	notifier *notify.Notifier,
	timeout time.Duration,
	logger *slog.Logger,
) *SettlementJob {
	return &SettlementJob{
		contests:   contests,
		matches:    matches,
		entries:    entries,
		aggregates: aggregates,
		provider:   provider,
		audit:      audit,
		locks:      locks,
		notifier:   notifier,
		timeout:    timeout,
		logger:     logger.With(slog.String("component", "settlement")),
	}
}

// contestResult carries per-contest counters back to Run for merging.
type contestResult struct {
	matchesSettled    int
	entriesAwarded    int
	pointsGranted     int
	aggregatesApplied int
	aggregatesFailed  int
}

// Run executes a single settlement invocation. Contest failures are isolated
// from each other; only a systemic failure returns an error.
func (j *SettlementJob) Run(ctx context.Context) (SettleSummary, error) {
	start := time.Now()
	var summary SettleSummary

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	if j.locks != nil {
		unlock, err := j.locks.Acquire(ctx, settlementLockKey, lockTTL(j.timeout))
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			j.logger.InfoContext(ctx, "another settlement invocation is running, skipping tick")
			summary.Skipped = true
			return summary, nil
		case err != nil:
			// Conditional entry updates keep settlement safe without the
			// lock; it only saves duplicate work.
			j.logger.WarnContext(ctx, "could not acquire settlement lock, proceeding",
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}

	contests, err := j.contests.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("settlement: list active contests: %w", err)
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
			res, err := j.settleContest(gctx, contest)

			mu.Lock()
			defer mu.Unlock()
			summary.Contests++
			summary.MatchesSettled += res.matchesSettled
			summary.EntriesAwarded += res.entriesAwarded
			summary.PointsGranted += res.pointsGranted
			summary.AggregatesApplied += res.aggregatesApplied
			summary.AggregatesFailed += res.aggregatesFailed
			if err != nil {
				summary.ContestsFailed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("contest %s: %v", contest.ID, err))
				j.logger.ErrorContext(gctx, "contest settlement failed",
					slog.String("contest_id", contest.ID),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)
	j.logger.InfoContext(ctx, "settlement invocation complete", slog.String("summary", summary.String()))
	j.announce(ctx, summary)
	return summary, nil
}

// settleContest settles every cached-final match of one contest. Match
// failures inside the contest are logged and skipped so one bad match never
// blocks the rest, but entries already committed before the failure still
// count toward the result and their aggregate increments are still applied.
func (j *SettlementJob) settleContest(ctx context.Context, contest domain.Contest) (contestResult, error) {
	var res contestResult

	snaps, err := j.matches.ListByContest(ctx, contest.ID)
	if err != nil {
		return res, fmt.Errorf("list matches: %w", err)
	}

	// Cheap local filter: only matches the sync job already cached as
	// terminal are candidates. No network call happens otherwise.
	candidates := make([]domain.MatchSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		if outcome.IsFinal(snap.Status) {
			candidates = append(candidates, snap)
		}
	}
	if len(candidates) == 0 {
		return res, nil
	}

	// Confirm the terminal state against the provider before awarding
	// anything. The cached copy may be stale or corrected upstream.
	ids := make([]int64, 0, len(candidates))
	for _, snap := range candidates {
		ids = append(ids, snap.ExternalID)
	}
	confirmed, err := j.provider.FetchByIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("confirm results: %w", err)
	}
	byExternal := make(map[int64]domain.MatchSnapshot, len(confirmed))
	for _, snap := range confirmed {
		byExternal[snap.ExternalID] = snap
	}

	for _, cached := range candidates {
		fresh, ok := byExternal[cached.ExternalID]
		if !ok {
			j.logger.WarnContext(ctx, "provider omitted final fixture, skipping",
				slog.String("contest_id", contest.ID),
				slog.String("match_id", cached.ID),
				slog.Int64("external_id", cached.ExternalID),
			)
			continue
		}

		awarded, points, incs, err := j.settleMatch(ctx, contest.ID, cached, fresh)
		switch {
		case err != nil:
			j.logger.ErrorContext(ctx, "match settlement failed",
				slog.String("contest_id", contest.ID),
				slog.String("match_id", cached.ID),
				slog.String("error", err.Error()),
			)
		case incs == nil:
			// Not confirmed final; try again next tick.
			continue
		default:
			res.matchesSettled++
		}

		// Entries settled by chunks that committed before a failure are
		// terminal and will never be revisited, so their increments must
		// reach the aggregates now even when the match as a whole failed.
		res.entriesAwarded += awarded
		res.pointsGranted += points
		if len(incs) > 0 {
			applied, failed := j.applyIncrements(ctx, incs)
			res.aggregatesApplied += applied
			res.aggregatesFailed += failed
		}
	}

	return res, nil
}

// settleMatch awards all unsettled entries of one match. It returns the
// number of entries awarded, the points granted, and the per-participant
// increments earned by updates that actually applied. A nil increment map
// with nil error means the provider no longer confirms the match as final.
func (j *SettlementJob) settleMatch(
	ctx context.Context,
	contestID string,
	cached, fresh domain.MatchSnapshot,
) (awarded, points int, incs map[string]*domain.AggregateIncrement, err error) {
	result, final := outcome.Resolve(fresh)
	if !final {
		j.logger.WarnContext(ctx, "cached final not confirmed by provider",
			slog.String("match_id", cached.ID),
			slog.String("cached_status", string(cached.Status)),
			slog.String("provider_status", string(fresh.Status)),
		)
		return 0, 0, nil, nil
	}
	if result.ScoreMissing {
		j.logger.WarnContext(ctx, "final fixture missing goals, treating as 0-0",
			slog.String("match_id", cached.ID),
		)
	}

	entries, err := j.entries.ListByMatch(ctx, cached.ID)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("list entries: %w", err)
	}

	incs = make(map[string]*domain.AggregateIncrement)
	resultSnap := result.Snapshot()

	staged := make([]domain.EntrySettlement, 0, min(len(entries), domain.MaxBatchOps))
	flush := func() error {
		if len(staged) == 0 {
			return nil
		}
		applied, err := j.entries.SettleBatch(ctx, staged)
		if err != nil {
			return fmt.Errorf("settle batch: %w", err)
		}
		for i, ok := range applied {
			if !ok {
				// A concurrent invocation won the write; its
				// increment is theirs to apply.
				continue
			}
			u := staged[i]
			inc := incs[u.ParticipantID]
			if inc == nil {
				inc = &domain.AggregateIncrement{}
				incs[u.ParticipantID] = inc
			}
			inc.Predictions++
			inc.Points += u.Points
			if u.Correct {
				inc.Correct++
			}
			awarded++
			points += u.Points
		}
		staged = staged[:0]
		return nil
	}

	for _, entry := range entries {
		if entry.Awarded {
			continue
		}
		if !entry.Pick.Valid() {
			j.logger.WarnContext(ctx, "entry has invalid pick, skipping",
				slog.String("match_id", entry.MatchID),
				slog.String("participant_id", entry.ParticipantID),
				slog.String("pick", string(entry.Pick)),
			)
			continue
		}

		correct := entry.Pick == result.Winner
		pts := 0
		if correct {
			pts = 1
		}
		staged = append(staged, domain.EntrySettlement{
			MatchID:       entry.MatchID,
			ParticipantID: entry.ParticipantID,
			Points:        pts,
			Correct:       correct,
			Result:        resultSnap,
		})
		if len(staged) == domain.MaxBatchOps {
			if err := flush(); err != nil {
				return awarded, points, incs, err
			}
		}
	}
	if err := flush(); err != nil {
		return awarded, points, incs, err
	}

	// Pin the confirmed copy into the snapshot cache so the audit trail and
	// any later read reflect exactly what was settled against.
	fresh.ID = cached.ID
	if err := j.matches.UpsertSnapshotBatch(ctx, contestID, []domain.MatchSnapshot{fresh}); err != nil {
		j.logger.WarnContext(ctx, "confirmed snapshot write failed",
			slog.String("match_id", cached.ID),
			slog.String("error", err.Error()),
		)
	}

	j.auditLog(ctx, "settlement.match", map[string]any{
		"contest_id":     contestID,
		"match_id":       cached.ID,
		"winner":         string(result.Winner),
		"status":         string(result.Status),
		"home_goals":     result.HomeGoals,
		"away_goals":     result.AwayGoals,
		"entries":        awarded,
		"points_granted": points,
	})

	return awarded, points, incs, nil
}

// applyIncrements updates participant aggregates one transaction each, in
// deterministic order. A participant without an aggregate record is skipped
// with an audit note; the record is never fabricated here.
func (j *SettlementJob) applyIncrements(ctx context.Context, incs map[string]*domain.AggregateIncrement) (applied, failed int) {
	ids := make([]string, 0, len(incs))
	for id := range incs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		inc := incs[id]
		if inc == nil || inc.IsZero() {
			continue
		}
		_, err := j.aggregates.ApplyIncrement(ctx, id, *inc)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			failed++
			j.logger.WarnContext(ctx, "participant has no aggregate record, skipping",
				slog.String("participant_id", id),
			)
			j.auditLog(ctx, "settlement.aggregate_missing", map[string]any{
				"participant_id": id,
				"points":         inc.Points,
				"predictions":    inc.Predictions,
				"correct":        inc.Correct,
			})
		case err != nil:
			failed++
			j.logger.ErrorContext(ctx, "aggregate update failed",
				slog.String("participant_id", id),
				slog.String("error", err.Error()),
			)
			j.auditLog(ctx, "settlement.aggregate_failed", map[string]any{
				"participant_id": id,
				"points":         inc.Points,
				"predictions":    inc.Predictions,
				"correct":        inc.Correct,
				"error":          err.Error(),
			})
		default:
			applied++
		}
	}
	return applied, failed
}

// auditLog records an audit entry best effort; settlement never fails over a
// missing audit row.
func (j *SettlementJob) auditLog(ctx context.Context, event string, detail map[string]any) {
	if j.audit == nil {
		return
	}
	if err := j.audit.Log(ctx, event, detail); err != nil {
		j.logger.WarnContext(ctx, "audit log write failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// announce pushes a short operator notification for ticks that did work or
// hit errors. Quiet ticks stay quiet.
func (j *SettlementJob) announce(ctx context.Context, summary SettleSummary) {
	if j.notifier == nil || summary.Skipped {
		return
	}
	switch {
	case len(summary.Errors) > 0:
		_ = j.notifier.Notify(ctx, "settlement.error", "Settlement errors", summary.String())
	case summary.EntriesAwarded > 0:
		_ = j.notifier.Notify(ctx, "settlement.awarded", "Settlement complete", summary.String())
	}
}

// RunLoop runs the job on a repeating interval until the context is
// cancelled.
func (j *SettlementJob) RunLoop(ctx context.Context, interval time.Duration) error {
	if _, err := j.Run(ctx); err != nil {
		j.logger.ErrorContext(ctx, "settlement invocation failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.InfoContext(ctx, "settlement loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.logger.ErrorContext(ctx, "settlement invocation failed", slog.String("error", err.Error()))
			}
		}
	}
}
