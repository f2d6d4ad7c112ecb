package domain

import (
	"context"
	"time"
)

// MaxBatchOps is the store's ceiling on operations in one atomic batch
// write. Batched writers must chunk at this size; stores reject anything
// larger.
const MaxBatchOps = 500

// ContestStore reads contest metadata. Contests are owned by the admin
// surface; the settlement backend never writes them.
type ContestStore interface {
	ListActive(ctx context.Context) ([]Contest, error)
	GetByID(ctx context.Context, id string) (Contest, error)
}

// MatchStore persists cached match snapshots, keyed by (contest id, match id).
type MatchStore interface {
	ListByContest(ctx context.Context, contestID string) ([]MatchSnapshot, error)
	GetSnapshot(ctx context.Context, contestID, matchID string) (MatchSnapshot, error)
	// UpsertSnapshotBatch writes the given snapshots as a single atomic
	// batch. It returns ErrBatchTooLarge when len(snaps) > MaxBatchOps.
	UpsertSnapshotBatch(ctx context.Context, contestID string, snaps []MatchSnapshot) error
}

// EntryStore persists prediction entries, keyed by (match id, participant id).
type EntryStore interface {
	ListByMatch(ctx context.Context, matchID string) ([]PredictionEntry, error)
	// SettleBatch applies the staged settlements as one atomic batch of
	// conditional updates guarded by awarded=false. The returned slice is
	// index-aligned with updates and reports, per entry, whether this call
	// performed the false->true transition. An entry already awarded (for
	// example by a concurrently running invocation) reports false.
	// Returns ErrBatchTooLarge when len(updates) > MaxBatchOps.
	SettleBatch(ctx context.Context, updates []EntrySettlement) ([]bool, error)
	// ListSettledBefore returns awarded entries last touched before the
	// cutoff, for cold-storage archival.
	ListSettledBefore(ctx context.Context, before time.Time) ([]PredictionEntry, error)
}

// AggregateStore persists per-participant running totals.
type AggregateStore interface {
	Get(ctx context.Context, participantID string) (ParticipantAggregate, error)
	// ApplyIncrement adds inc to the participant's totals inside a
	// read-modify-write transaction and recomputes the accuracy. It is the
	// only write path for aggregates. Returns ErrNotFound when the
	// participant has no aggregate record; callers must not fabricate one.
	ApplyIncrement(ctx context.Context, participantID string, inc AggregateIncrement) (ParticipantAggregate, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only operational audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
}
