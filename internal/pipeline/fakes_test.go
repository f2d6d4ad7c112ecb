package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bangerpicks/backend/internal/domain"
)

// In-memory store fakes. All fakes are safe for concurrent use so the
// exactly-once tests can hammer them from parallel invocations.

type fakeContestStore struct {
	mu       sync.Mutex
	contests []domain.Contest
	err      error
}

func (f *fakeContestStore) ListActive(ctx context.Context) ([]domain.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Contest, len(f.contests))
	copy(out, f.contests)
	return out, nil
}

func (f *fakeContestStore) GetByID(ctx context.Context, id string) (domain.Contest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contests {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Contest{}, domain.ErrNotFound
}

type fakeMatchStore struct {
	mu         sync.Mutex
	byContest  map[string][]domain.MatchSnapshot
	batchSizes []int
	upsertErr  error
}

func newFakeMatchStore() *fakeMatchStore {
	return &fakeMatchStore{byContest: make(map[string][]domain.MatchSnapshot)}
}

func (f *fakeMatchStore) seed(contestID string, snaps ...domain.MatchSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byContest[contestID] = append(f.byContest[contestID], snaps...)
}

func (f *fakeMatchStore) ListByContest(ctx context.Context, contestID string) ([]domain.MatchSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.MatchSnapshot, len(f.byContest[contestID]))
	copy(out, f.byContest[contestID])
	return out, nil
}

func (f *fakeMatchStore) GetSnapshot(ctx context.Context, contestID, matchID string) (domain.MatchSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, snap := range f.byContest[contestID] {
		if snap.ID == matchID {
			return snap, nil
		}
	}
	return domain.MatchSnapshot{}, domain.ErrNotFound
}

func (f *fakeMatchStore) UpsertSnapshotBatch(ctx context.Context, contestID string, snaps []domain.MatchSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(snaps) > domain.MaxBatchOps {
		return domain.ErrBatchTooLarge
	}
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.batchSizes = append(f.batchSizes, len(snaps))
	existing := f.byContest[contestID]
	for _, snap := range snaps {
		replaced := false
		for i := range existing {
			if existing[i].ID == snap.ID {
				existing[i] = snap
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, snap)
		}
	}
	f.byContest[contestID] = existing
	return nil
}

type fakeEntryStore struct {
	mu          sync.Mutex
	byMatch     map[string][]domain.PredictionEntry
	batchSizes  []int
	settleCalls int
	// failSettleCall makes the Nth SettleBatch call (1-based) return an
	// error without applying anything, simulating a mid-match store outage.
	failSettleCall int
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{byMatch: make(map[string][]domain.PredictionEntry)}
}

func (f *fakeEntryStore) seed(entries ...domain.PredictionEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.byMatch[e.MatchID] = append(f.byMatch[e.MatchID], e)
	}
}

func (f *fakeEntryStore) get(matchID, participantID string) (domain.PredictionEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byMatch[matchID] {
		if e.ParticipantID == participantID {
			return e, true
		}
	}
	return domain.PredictionEntry{}, false
}

func (f *fakeEntryStore) ListByMatch(ctx context.Context, matchID string) ([]domain.PredictionEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.PredictionEntry, len(f.byMatch[matchID]))
	copy(out, f.byMatch[matchID])
	return out, nil
}

func (f *fakeEntryStore) SettleBatch(ctx context.Context, updates []domain.EntrySettlement) ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(updates) > domain.MaxBatchOps {
		return nil, domain.ErrBatchTooLarge
	}
	f.settleCalls++
	if f.failSettleCall > 0 && f.settleCalls == f.failSettleCall {
		return nil, fmt.Errorf("settle batch: connection reset")
	}
	f.batchSizes = append(f.batchSizes, len(updates))
	applied := make([]bool, len(updates))
	for i, u := range updates {
		entries := f.byMatch[u.MatchID]
		for k := range entries {
			if entries[k].ParticipantID != u.ParticipantID {
				continue
			}
			if entries[k].Awarded {
				break
			}
			correct := u.Correct
			result := u.Result
			entries[k].Awarded = true
			entries[k].Points = u.Points
			entries[k].Correct = &correct
			entries[k].Result = &result
			entries[k].UpdatedAt = time.Now()
			applied[i] = true
			break
		}
	}
	return applied, nil
}

func (f *fakeEntryStore) ListSettledBefore(ctx context.Context, before time.Time) ([]domain.PredictionEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PredictionEntry
	for _, entries := range f.byMatch {
		for _, e := range entries {
			if e.Awarded && e.UpdatedAt.Before(before) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

type fakeAggregateStore struct {
	mu         sync.Mutex
	aggs       map[string]domain.ParticipantAggregate
	applyCalls int
}

func newFakeAggregateStore() *fakeAggregateStore {
	return &fakeAggregateStore{aggs: make(map[string]domain.ParticipantAggregate)}
}

func (f *fakeAggregateStore) seed(aggs ...domain.ParticipantAggregate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range aggs {
		f.aggs[a.ParticipantID] = a
	}
}

func (f *fakeAggregateStore) Get(ctx context.Context, participantID string) (domain.ParticipantAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agg, ok := f.aggs[participantID]
	if !ok {
		return domain.ParticipantAggregate{}, domain.ErrNotFound
	}
	return agg, nil
}

func (f *fakeAggregateStore) ApplyIncrement(ctx context.Context, participantID string, inc domain.AggregateIncrement) (domain.ParticipantAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	agg, ok := f.aggs[participantID]
	if !ok {
		return domain.ParticipantAggregate{}, domain.ErrNotFound
	}
	agg.TotalPoints += inc.Points
	agg.TotalPredictions += inc.Predictions
	agg.CorrectPredictions += inc.Correct
	agg.Accuracy = domain.Accuracy(agg.CorrectPredictions, agg.TotalPredictions)
	agg.UpdatedAt = time.Now()
	f.aggs[participantID] = agg
	return agg, nil
}

type fakeProvider struct {
	mu         sync.Mutex
	byExternal map[int64]domain.MatchSnapshot
	failIDs    map[int64]bool
	calls      [][]int64
}

func newFakeProvider(snaps ...domain.MatchSnapshot) *fakeProvider {
	p := &fakeProvider{
		byExternal: make(map[int64]domain.MatchSnapshot),
		failIDs:    make(map[int64]bool),
	}
	for _, snap := range snaps {
		p.byExternal[snap.ExternalID] = snap
	}
	return p
}

func (f *fakeProvider) FetchByIDs(ctx context.Context, ids []int64) ([]domain.MatchSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recorded := make([]int64, len(ids))
	copy(recorded, ids)
	f.calls = append(f.calls, recorded)
	var out []domain.MatchSnapshot
	for _, id := range ids {
		if f.failIDs[id] {
			return nil, fmt.Errorf("fixture %d: %w", id, domain.ErrProvider)
		}
		if snap, ok := f.byExternal[id]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLockManager struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLockManager() *fakeLockManager {
	return &fakeLockManager{held: make(map[string]bool)}
}

func (f *fakeLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.held[key] = false
	}, nil
}

type fakeLiveCache struct {
	mu   sync.Mutex
	sets map[string][]domain.MatchSnapshot
}

func newFakeLiveCache() *fakeLiveCache {
	return &fakeLiveCache{sets: make(map[string][]domain.MatchSnapshot)}
}

func (f *fakeLiveCache) SetSnapshots(ctx context.Context, contestID string, snaps []domain.MatchSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.MatchSnapshot, len(snaps))
	copy(out, snaps)
	f.sets[contestID] = out
	return nil
}

func (f *fakeLiveCache) GetSnapshots(ctx context.Context, contestID string) ([]domain.MatchSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[contestID], nil
}

type fakeAuditStore struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeAuditStore) ListBefore(ctx context.Context, before time.Time) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (f *fakeAuditStore) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

func intPtr(v int) *int { return &v }
