package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangerpicks/backend/internal/domain"
)

// EntryStore implements domain.EntryStore using PostgreSQL.
type EntryStore struct {
	pool *pgxpool.Pool
}

// NewEntryStore creates a new EntryStore backed by the given pool.
func NewEntryStore(pool *pgxpool.Pool) *EntryStore {
	return &EntryStore{pool: pool}
}

const entryColumns = `match_id, participant_id, pick, awarded, points, correct,
	result_status, result_home, result_away, created_at, updated_at`

// ListByMatch returns every entry for the given match.
func (s *EntryStore) ListByMatch(ctx context.Context, matchID string) ([]domain.PredictionEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE match_id = $1 ORDER BY participant_id`

	rows, err := s.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list entries for match %s: %w", matchID, err)
	}
	defer rows.Close()

	var entries []domain.PredictionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan entry for match %s: %w", matchID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list entries for match %s rows: %w", matchID, err)
	}
	return entries, nil
}

// SettleBatch applies the staged settlements as one atomic batch. Every
// update is guarded by awarded = FALSE, so an entry settled by a concurrent
// invocation is left untouched; the returned slice reports which updates
// actually applied. The whole batch runs inside a transaction.
func (s *EntryStore) SettleBatch(ctx context.Context, updates []domain.EntrySettlement) ([]bool, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	if len(updates) > domain.MaxBatchOps {
		return nil, fmt.Errorf("postgres: settle %d entries: %w", len(updates), domain.ErrBatchTooLarge)
	}

	const query = `
		UPDATE entries SET
			awarded       = TRUE,
			points        = $3,
			correct       = $4,
			result_status = $5,
			result_home   = $6,
			result_away   = $7,
			updated_at    = NOW()
		WHERE match_id = $1 AND participant_id = $2 AND awarded = FALSE`

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(query,
			u.MatchID, u.ParticipantID,
			u.Points, u.Correct,
			string(u.Result.Status), u.Result.HomeGoals, u.Result.AwayGoals,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin settle batch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	applied := make([]bool, len(updates))
	br := tx.SendBatch(ctx, batch)
	for i := range updates {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("postgres: settle entry %s/%s: %w",
				updates[i].MatchID, updates[i].ParticipantID, err)
		}
		applied[i] = tag.RowsAffected() == 1
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("postgres: close settle batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit settle batch: %w", err)
	}
	return applied, nil
}

// ListSettledBefore returns awarded entries last updated before the cutoff.
func (s *EntryStore) ListSettledBefore(ctx context.Context, before time.Time) ([]domain.PredictionEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE awarded = TRUE AND updated_at < $1 ORDER BY updated_at`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled entries before %v: %w", before, err)
	}
	defer rows.Close()

	var entries []domain.PredictionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settled entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list settled entries rows: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (domain.PredictionEntry, error) {
	var e domain.PredictionEntry
	var pick string
	var resultStatus *string
	var resultHome, resultAway *int

	err := row.Scan(
		&e.MatchID, &e.ParticipantID, &pick,
		&e.Awarded, &e.Points, &e.Correct,
		&resultStatus, &resultHome, &resultAway,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.PredictionEntry{}, err
	}

	e.Pick = domain.Pick(pick)
	if resultStatus != nil {
		e.Result = &domain.ResultSnapshot{
			Status: domain.MatchStatus(*resultStatus),
		}
		if resultHome != nil {
			e.Result.HomeGoals = *resultHome
		}
		if resultAway != nil {
			e.Result.AwayGoals = *resultAway
		}
	}
	return e, nil
}

// Compile-time interface check.
var _ domain.EntryStore = (*EntryStore)(nil)
