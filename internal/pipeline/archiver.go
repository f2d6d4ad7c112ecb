package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/bangerpicks/backend/internal/domain"
)

// ArchiveJob periodically offloads settled entries and old audit rows to
// blob storage. It runs once a day; a failed run is retried the next day.
type ArchiveJob struct {
	archiver      domain.Archiver
	retentionDays int
	logger        *slog.Logger
}

// NewArchiveJob creates an ArchiveJob that archives data older than
// retentionDays days.
func NewArchiveJob(archiver domain.Archiver, retentionDays int, logger *slog.Logger) *ArchiveJob {
	return &ArchiveJob{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// Run performs one archive pass.
func (j *ArchiveJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	j.logger.InfoContext(ctx, "archive pass starting", slog.Time("cutoff", cutoff))

	entries, err := j.archiver.ArchiveEntries(ctx, cutoff)
	if err != nil {
		return err
	}
	audit, err := j.archiver.ArchiveAuditLog(ctx, cutoff)
	if err != nil {
		return err
	}

	j.logger.InfoContext(ctx, "archive pass complete",
		slog.Int64("entries", entries),
		slog.Int64("audit_rows", audit),
	)
	return nil
}

// RunDaily runs the archive pass every day at the given UTC hour until the
// context is cancelled.
func (j *ArchiveJob) RunDaily(ctx context.Context, hourUTC int) error {
	for {
		next := nextDailyRun(time.Now().UTC(), hourUTC)
		j.logger.InfoContext(ctx, "next archive pass scheduled", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.InfoContext(ctx, "archive loop stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := j.Run(ctx); err != nil {
			j.logger.ErrorContext(ctx, "archive pass failed", slog.String("error", err.Error()))
		}
	}
}

// nextDailyRun returns the next instant after now that falls on hourUTC.
func nextDailyRun(now time.Time, hourUTC int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
