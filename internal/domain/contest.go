package domain

import "time"

// ContestStatus represents the lifecycle state of a contest.
type ContestStatus string

const (
	ContestStatusDraft     ContestStatus = "draft"
	ContestStatusActive    ContestStatus = "active"
	ContestStatusCompleted ContestStatus = "completed"
	ContestStatusArchived  ContestStatus = "archived"
)

// Contest is a time-boxed set of matches open for prediction (a "gameweek" in
// the product). Contests are created and edited by the admin surface; the
// settlement backend only reads their status and match membership.
type Contest struct {
	ID        string
	Name      string
	Status    ContestStatus
	Deadline  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
