package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangerpicks/backend/internal/domain"
)

// ContestStore implements domain.ContestStore using PostgreSQL.
type ContestStore struct {
	pool *pgxpool.Pool
}

// NewContestStore creates a new ContestStore backed by the given pool.
func NewContestStore(pool *pgxpool.Pool) *ContestStore {
	return &ContestStore{pool: pool}
}

const contestColumns = `id, name, status, deadline, created_at, updated_at`

// ListActive returns all contests currently open for play, ordered by
// deadline.
func (s *ContestStore) ListActive(ctx context.Context) ([]domain.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE status = $1 ORDER BY deadline`

	rows, err := s.pool.Query(ctx, query, string(domain.ContestStatusActive))
	if err != nil {
		return nil, fmt.Errorf("postgres: list active contests: %w", err)
	}
	defer rows.Close()

	var contests []domain.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active contests rows: %w", err)
	}
	return contests, nil
}

// GetByID returns a single contest. Returns domain.ErrNotFound when the
// contest does not exist.
func (s *ContestStore) GetByID(ctx context.Context, id string) (domain.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`

	c, err := scanContest(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contest{}, fmt.Errorf("postgres: contest %s: %w", id, domain.ErrNotFound)
		}
		return domain.Contest{}, fmt.Errorf("postgres: get contest %s: %w", id, err)
	}
	return c, nil
}

func scanContest(row pgx.Row) (domain.Contest, error) {
	var c domain.Contest
	var status string
	if err := row.Scan(&c.ID, &c.Name, &status, &c.Deadline, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Contest{}, err
	}
	c.Status = domain.ContestStatus(status)
	return c, nil
}

// Compile-time interface check.
var _ domain.ContestStore = (*ContestStore)(nil)
