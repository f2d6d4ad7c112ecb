package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangerpicks/backend/internal/domain"
)

// AggregateStore implements domain.AggregateStore using PostgreSQL. All
// writes go through ApplyIncrement's row-locked read-modify-write; there is
// deliberately no plain overwrite path, so concurrent settlement runs cannot
// lose updates.
type AggregateStore struct {
	pool *pgxpool.Pool
}

// NewAggregateStore creates a new AggregateStore backed by the given pool.
func NewAggregateStore(pool *pgxpool.Pool) *AggregateStore {
	return &AggregateStore{pool: pool}
}

// Get returns a participant's aggregate. Returns domain.ErrNotFound when the
// participant has no record.
func (s *AggregateStore) Get(ctx context.Context, participantID string) (domain.ParticipantAggregate, error) {
	const query = `
		SELECT participant_id, total_points, total_predictions, correct_predictions, accuracy, updated_at
		FROM participant_stats WHERE participant_id = $1`

	var agg domain.ParticipantAggregate
	err := s.pool.QueryRow(ctx, query, participantID).Scan(
		&agg.ParticipantID, &agg.TotalPoints, &agg.TotalPredictions,
		&agg.CorrectPredictions, &agg.Accuracy, &agg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ParticipantAggregate{}, fmt.Errorf("postgres: aggregate %s: %w", participantID, domain.ErrNotFound)
		}
		return domain.ParticipantAggregate{}, fmt.Errorf("postgres: get aggregate %s: %w", participantID, err)
	}
	return agg, nil
}

// ApplyIncrement adds inc to the participant's totals in a transaction. The
// row is locked for the duration, the accuracy is recomputed from the new
// totals, and the updated aggregate is returned. Returns domain.ErrNotFound
// when the participant has no aggregate record; no record is fabricated.
func (s *AggregateStore) ApplyIncrement(ctx context.Context, participantID string, inc domain.AggregateIncrement) (domain.ParticipantAggregate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ParticipantAggregate{}, fmt.Errorf("postgres: begin aggregate tx for %s: %w", participantID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	const selectQuery = `
		SELECT total_points, total_predictions, correct_predictions
		FROM participant_stats WHERE participant_id = $1 FOR UPDATE`

	var points, predictions, correct int
	err = tx.QueryRow(ctx, selectQuery, participantID).Scan(&points, &predictions, &correct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ParticipantAggregate{}, fmt.Errorf("postgres: aggregate %s: %w", participantID, domain.ErrNotFound)
		}
		return domain.ParticipantAggregate{}, fmt.Errorf("postgres: lock aggregate %s: %w", participantID, err)
	}

	agg := domain.ParticipantAggregate{
		ParticipantID:      participantID,
		TotalPoints:        points + inc.Points,
		TotalPredictions:   predictions + inc.Predictions,
		CorrectPredictions: correct + inc.Correct,
	}
	agg.Accuracy = domain.Accuracy(agg.CorrectPredictions, agg.TotalPredictions)

	const updateQuery = `
		UPDATE participant_stats SET
			total_points        = $2,
			total_predictions   = $3,
			correct_predictions = $4,
			accuracy            = $5,
			updated_at          = NOW()
		WHERE participant_id = $1`

	if _, err := tx.Exec(ctx, updateQuery,
		participantID, agg.TotalPoints, agg.TotalPredictions, agg.CorrectPredictions, agg.Accuracy,
	); err != nil {
		return domain.ParticipantAggregate{}, fmt.Errorf("postgres: update aggregate %s: %w", participantID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ParticipantAggregate{}, fmt.Errorf("postgres: commit aggregate %s: %w", participantID, err)
	}
	return agg, nil
}

// Compile-time interface check.
var _ domain.AggregateStore = (*AggregateStore)(nil)
