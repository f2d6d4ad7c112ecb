package pipeline

import (
	"fmt"
	"time"
)

// SyncSummary reports what one live-sync invocation did. It is returned to
// the caller and logged, so operators can read counts straight off the tick.
type SyncSummary struct {
	Contests       int
	ContestsFailed int
	MatchesChecked int
	MatchesUpdated int
	// Skipped is true when the invocation gave way to a concurrently
	// running one holding the job lock.
	Skipped  bool
	Errors   []string
	Duration time.Duration
}

// String returns a one-line human-readable summary.
func (s SyncSummary) String() string {
	if s.Skipped {
		return "skipped (lock held)"
	}
	return fmt.Sprintf(
		"contests=%d failed=%d matches_checked=%d matches_updated=%d errors=%d duration=%s",
		s.Contests, s.ContestsFailed, s.MatchesChecked, s.MatchesUpdated,
		len(s.Errors), s.Duration.Round(time.Millisecond),
	)
}

// SettleSummary reports what one settlement invocation did.
type SettleSummary struct {
	Contests          int
	ContestsFailed    int
	MatchesSettled    int
	EntriesAwarded    int
	PointsGranted     int
	AggregatesApplied int
	AggregatesFailed  int
	Skipped           bool
	Errors            []string
	Duration          time.Duration
}

// String returns a one-line human-readable summary.
func (s SettleSummary) String() string {
	if s.Skipped {
		return "skipped (lock held)"
	}
	return fmt.Sprintf(
		"contests=%d failed=%d matches_settled=%d entries_awarded=%d points=%d aggregates_applied=%d aggregates_failed=%d errors=%d duration=%s",
		s.Contests, s.ContestsFailed, s.MatchesSettled, s.EntriesAwarded, s.PointsGranted,
		s.AggregatesApplied, s.AggregatesFailed, len(s.Errors), s.Duration.Round(time.Millisecond),
	)
}
