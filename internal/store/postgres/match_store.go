package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangerpicks/backend/internal/domain"
)

// MatchStore implements domain.MatchStore using PostgreSQL.
type MatchStore struct {
	pool *pgxpool.Pool
}

// NewMatchStore creates a new MatchStore backed by the given pool.
func NewMatchStore(pool *pgxpool.Pool) *MatchStore {
	return &MatchStore{pool: pool}
}

const matchColumns = `match_id, external_id, status, home_team, away_team,
	home_goals, away_goals, kickoff, payload, updated_at`

// ListByContest returns all cached snapshots for the contest ordered by
// kickoff time.
func (s *MatchStore) ListByContest(ctx context.Context, contestID string) ([]domain.MatchSnapshot, error) {
	query := `SELECT ` + matchColumns + ` FROM contest_matches WHERE contest_id = $1 ORDER BY kickoff, match_id`

	rows, err := s.pool.Query(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list matches for contest %s: %w", contestID, err)
	}
	defer rows.Close()

	var snaps []domain.MatchSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan match for contest %s: %w", contestID, err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list matches for contest %s rows: %w", contestID, err)
	}
	return snaps, nil
}

// GetSnapshot returns one cached snapshot. Returns domain.ErrNotFound when
// the match is not a member of the contest.
func (s *MatchStore) GetSnapshot(ctx context.Context, contestID, matchID string) (domain.MatchSnapshot, error) {
	query := `SELECT ` + matchColumns + ` FROM contest_matches WHERE contest_id = $1 AND match_id = $2`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, contestID, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MatchSnapshot{}, fmt.Errorf("postgres: match %s/%s: %w", contestID, matchID, domain.ErrNotFound)
		}
		return domain.MatchSnapshot{}, fmt.Errorf("postgres: get match %s/%s: %w", contestID, matchID, err)
	}
	return snap, nil
}

// UpsertSnapshotBatch writes all given snapshots for one contest as a single
// atomic batch inside a transaction.
func (s *MatchStore) UpsertSnapshotBatch(ctx context.Context, contestID string, snaps []domain.MatchSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	if len(snaps) > domain.MaxBatchOps {
		return fmt.Errorf("postgres: upsert %d snapshots: %w", len(snaps), domain.ErrBatchTooLarge)
	}

	const query = `
		INSERT INTO contest_matches (
			contest_id, match_id, external_id, status, home_team, away_team,
			home_goals, away_goals, kickoff, payload, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (contest_id, match_id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			status      = EXCLUDED.status,
			home_team   = EXCLUDED.home_team,
			away_team   = EXCLUDED.away_team,
			home_goals  = EXCLUDED.home_goals,
			away_goals  = EXCLUDED.away_goals,
			kickoff     = EXCLUDED.kickoff,
			payload     = EXCLUDED.payload,
			updated_at  = NOW()`

	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(query,
			contestID, snap.ID, snap.ExternalID, string(snap.Status),
			snap.HomeTeam, snap.AwayTeam,
			snap.HomeGoals, snap.AwayGoals,
			snap.Kickoff, snap.Payload,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin snapshot batch for contest %s: %w", contestID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	br := tx.SendBatch(ctx, batch)
	for range snaps {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: upsert snapshot batch for contest %s: %w", contestID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close snapshot batch for contest %s: %w", contestID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit snapshot batch for contest %s: %w", contestID, err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (domain.MatchSnapshot, error) {
	var snap domain.MatchSnapshot
	var status string
	err := row.Scan(
		&snap.ID, &snap.ExternalID, &status,
		&snap.HomeTeam, &snap.AwayTeam,
		&snap.HomeGoals, &snap.AwayGoals,
		&snap.Kickoff, &snap.Payload, &snap.UpdatedAt,
	)
	if err != nil {
		return domain.MatchSnapshot{}, err
	}
	snap.Status = domain.MatchStatus(status)
	return snap, nil
}

// Compile-time interface check.
var _ domain.MatchStore = (*MatchStore)(nil)
