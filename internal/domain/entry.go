package domain

import "time"

// Pick is a participant's categorical prediction for one match.
type Pick string

const (
	PickHome Pick = "home"
	PickDraw Pick = "draw"
	PickAway Pick = "away"
)

// Valid reports whether p is one of the three recognized pick values.
func (p Pick) Valid() bool {
	switch p {
	case PickHome, PickDraw, PickAway:
		return true
	}
	return false
}

// ResultSnapshot is the final match result cached onto a settled entry.
type ResultSnapshot struct {
	Status    MatchStatus `json:"status"`
	HomeGoals int         `json:"home_goals"`
	AwayGoals int         `json:"away_goals"`
}

// PredictionEntry is one participant's pick for one match. Awarded is the
// settlement idempotency guard: it transitions false -> true exactly once and
// the entry is never mutated again.
type PredictionEntry struct {
	MatchID       string
	ParticipantID string
	Pick          Pick
	Awarded       bool
	Points        int
	// Correct is nil until the entry has been settled.
	Correct   *bool
	Result    *ResultSnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntrySettlement is a staged settlement update for a single entry. Applying
// it sets awarded=true together with the points, correctness, and the cached
// final result.
type EntrySettlement struct {
	MatchID       string
	ParticipantID string
	Points        int
	Correct       bool
	Result        ResultSnapshot
}
