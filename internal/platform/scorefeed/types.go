package scorefeed

import (
	"encoding/json"
	"time"

	"github.com/bangerpicks/backend/internal/domain"
)

// fixturesEnvelope is the provider's response wrapper. The Errors field is
// populated in-band even on HTTP 200 and must be checked: the provider
// returns an empty array when there are no errors and an object keyed by the
// offending field when there are.
type fixturesEnvelope struct {
	Errors   json.RawMessage   `json:"errors"`
	Results  int               `json:"results"`
	Response []json.RawMessage `json:"response"`
}

// errorMap decodes the in-band errors field. It returns nil when the field
// is absent, null, or an empty array/object.
func (e *fixturesEnvelope) errorMap() map[string]string {
	if len(e.Errors) == 0 {
		return nil
	}

	var m map[string]string
	if err := json.Unmarshal(e.Errors, &m); err == nil {
		if len(m) == 0 {
			return nil
		}
		return m
	}

	// Empty error sets arrive as "[]" rather than "{}".
	var list []any
	if err := json.Unmarshal(e.Errors, &list); err == nil && len(list) == 0 {
		return nil
	}

	return map[string]string{"_raw": string(e.Errors)}
}

// apiFixture is a single fixture object as returned by the provider.
type apiFixture struct {
	Fixture struct {
		ID     int64     `json:"id"`
		Date   time.Time `json:"date"`
		Status struct {
			Long    string `json:"long"`
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	Teams struct {
		Home struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"home"`
		Away struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

// toSnapshot maps the provider fixture to a domain snapshot, keeping the raw
// payload alongside the parsed fields.
func (f *apiFixture) toSnapshot(raw json.RawMessage) domain.MatchSnapshot {
	return domain.MatchSnapshot{
		ExternalID: f.Fixture.ID,
		Status:     domain.MatchStatus(f.Fixture.Status.Short),
		HomeTeam:   f.Teams.Home.Name,
		AwayTeam:   f.Teams.Away.Name,
		HomeGoals:  f.Goals.Home,
		AwayGoals:  f.Goals.Away,
		Kickoff:    f.Fixture.Date,
		Payload:    raw,
		UpdatedAt:  time.Now().UTC(),
	}
}
