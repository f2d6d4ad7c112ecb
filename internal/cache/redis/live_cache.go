package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bangerpicks/backend/internal/domain"
)

// liveTTL keeps live-score entries a little past two sync ticks; a contest
// that stops syncing simply ages out.
const liveTTL = 3 * time.Minute

// LiveScoreCache implements domain.LiveScoreCache using a Redis hash per
// contest with one JSON-serialized snapshot per match field.
//
// Key schema:
//
//	live:{contestID} - hash of match id -> snapshot JSON
type LiveScoreCache struct {
	rdb *redis.Client
}

// NewLiveScoreCache creates a LiveScoreCache backed by the given Client.
func NewLiveScoreCache(c *Client) *LiveScoreCache {
	return &LiveScoreCache{rdb: c.Underlying()}
}

func liveKey(contestID string) string { return "live:" + contestID }

// SetSnapshots replaces the cached snapshots for a contest and refreshes the
// TTL. Matches absent from snaps are removed.
func (lc *LiveScoreCache) SetSnapshots(ctx context.Context, contestID string, snaps []domain.MatchSnapshot) error {
	key := liveKey(contestID)

	fields := make(map[string]any, len(snaps))
	for _, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("redis: marshal snapshot %s: %w", snap.ID, err)
		}
		fields[snap.ID] = data
	}

	pipe := lc.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, liveTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set live scores for contest %s: %w", contestID, err)
	}
	return nil
}

// GetSnapshots returns the cached snapshots for a contest. A contest with no
// cached scores returns an empty slice, not an error.
func (lc *LiveScoreCache) GetSnapshots(ctx context.Context, contestID string) ([]domain.MatchSnapshot, error) {
	values, err := lc.rdb.HGetAll(ctx, liveKey(contestID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get live scores for contest %s: %w", contestID, err)
	}

	snaps := make([]domain.MatchSnapshot, 0, len(values))
	for matchID, raw := range values {
		var snap domain.MatchSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("redis: unmarshal snapshot %s: %w", matchID, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Compile-time interface check.
var _ domain.LiveScoreCache = (*LiveScoreCache)(nil)
