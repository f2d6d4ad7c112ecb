package domain

import (
	"math"
	"time"
)

// ParticipantAggregate holds a participant's running totals. It is a running
// increment, never a recomputation: the full entry history is not assumed to
// be cheaply enumerable.
type ParticipantAggregate struct {
	ParticipantID      string
	TotalPoints        int
	TotalPredictions   int
	CorrectPredictions int
	// Accuracy is the derived percentage, round(correct/total*100).
	Accuracy  int
	UpdatedAt time.Time
}

// AggregateIncrement is the delta produced by settling one or more entries
// for a single participant.
type AggregateIncrement struct {
	Points      int
	Predictions int
	Correct     int
}

// IsZero reports whether the increment would not change any total.
func (inc AggregateIncrement) IsZero() bool {
	return inc.Points == 0 && inc.Predictions == 0 && inc.Correct == 0
}

// Accuracy returns the rounded percentage of correct predictions, or 0 when
// no predictions have been made.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
