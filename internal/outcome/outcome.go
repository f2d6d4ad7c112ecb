// Package outcome determines the categorical result of a match from its
// snapshot. It is the single place in the codebase that knows which provider
// statuses are terminal and how a score maps to home/draw/away.
package outcome

import "github.com/bangerpicks/backend/internal/domain"

// terminal is the set of provider statuses after which a match will never
// change: regulation full time, after extra time, and a decided penalty
// shootout.
var terminal = map[domain.MatchStatus]bool{
	domain.StatusFullTime:       true,
	domain.StatusAfterExtraTime: true,
	domain.StatusPenaltiesDone:  true,
}

// IsFinal reports whether the status is terminal.
func IsFinal(status domain.MatchStatus) bool {
	return terminal[status]
}

// Result is the resolved outcome of a final match.
type Result struct {
	Winner    domain.Pick
	Status    domain.MatchStatus
	HomeGoals int
	AwayGoals int
	// ScoreMissing flags that one or both goal counts were absent on a
	// terminal-status fixture and were treated as zero. Callers should log
	// this; it is an upstream data anomaly.
	ScoreMissing bool
}

// Snapshot returns the result in the shape cached onto settled entries.
func (r Result) Snapshot() domain.ResultSnapshot {
	return domain.ResultSnapshot{
		Status:    r.Status,
		HomeGoals: r.HomeGoals,
		AwayGoals: r.AwayGoals,
	}
}

// Resolve returns the outcome of the given snapshot. The second return value
// is false while the match is still pending (any non-terminal status),
// regardless of the reported score.
func Resolve(snap domain.MatchSnapshot) (Result, bool) {
	if !IsFinal(snap.Status) {
		return Result{}, false
	}

	res := Result{Status: snap.Status}
	if snap.HomeGoals == nil || snap.AwayGoals == nil {
		res.ScoreMissing = true
	}
	if snap.HomeGoals != nil {
		res.HomeGoals = *snap.HomeGoals
	}
	if snap.AwayGoals != nil {
		res.AwayGoals = *snap.AwayGoals
	}

	switch {
	case res.HomeGoals > res.AwayGoals:
		res.Winner = domain.PickHome
	case res.AwayGoals > res.HomeGoals:
		res.Winner = domain.PickAway
	default:
		res.Winner = domain.PickDraw
	}

	return res, true
}
