package domain

import (
	"encoding/json"
	"time"
)

// MatchStatus is the provider's short status code for a fixture.
type MatchStatus string

const (
	StatusNotStarted  MatchStatus = "NS"
	StatusToBeDefined MatchStatus = "TBD"
	StatusFirstHalf   MatchStatus = "1H"
	StatusHalftime    MatchStatus = "HT"
	StatusSecondHalf  MatchStatus = "2H"
	StatusExtraTime   MatchStatus = "ET"
	StatusBreakTime   MatchStatus = "BT"
	StatusPenaltyLive MatchStatus = "P"
	StatusSuspended   MatchStatus = "SUSP"
	StatusInterrupted MatchStatus = "INT"
	StatusLive        MatchStatus = "LIVE"

	// Terminal statuses. A match carrying one of these will never change
	// again and is eligible for settlement.
	StatusFullTime       MatchStatus = "FT"
	StatusAfterExtraTime MatchStatus = "AET"
	StatusPenaltiesDone  MatchStatus = "PEN"
)

// MatchSnapshot is the cached copy of one match's state for one contest.
// Live sync overwrites it while the match is in play; once the cached status
// is terminal it is only touched by the settlement confirmation read.
type MatchSnapshot struct {
	// ID is the document identifier within the contest.
	ID string
	// ExternalID is the provider's fixture identifier.
	ExternalID int64
	Status     MatchStatus
	HomeTeam   string
	AwayTeam   string
	// HomeGoals and AwayGoals are nil until the provider reports a score.
	HomeGoals *int
	AwayGoals *int
	Kickoff   time.Time
	// Payload is the raw provider fixture object as last fetched.
	Payload   json.RawMessage
	UpdatedAt time.Time
}
