package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/byteball/perp-stats/internal/domain"
	"github.com/byteball/perp-stats/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Snapshot // keyed by composite key

	// Now is the clock used by the range queries; override in tests.
	Now func() time.Time
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.Snapshot),
		Now:  time.Now,
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// snapshotKey generates the uniqueness key for a snapshot.
func snapshotKey(agent, asset string, timestamp int64) string {
	return fmt.Sprintf("%s|%s|%d", agent, asset, timestamp)
}

// Insert adds one snapshot; an existing key is silently kept.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.AgentAddress == "" || snap.Asset == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertLocked(snap)
	return nil
}

// InsertBulk adds snapshots atomically; existing keys are silently kept.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		if snap == nil || snap.AgentAddress == "" || snap.Asset == "" {
			return storage.ErrInvalidInput
		}
	}
	for _, snap := range snapshots {
		s.insertLocked(snap)
	}
	return nil
}

// insertLocked inserts unless the key exists. Caller holds the lock.
func (s *SnapshotStore) insertLocked(snap *domain.Snapshot) {
	key := snapshotKey(snap.AgentAddress, snap.Asset, snap.Timestamp)
	if _, exists := s.data[key]; exists {
		return
	}
	copy := *snap
	if copy.CreatedAt == 0 {
		copy.CreatedAt = s.Now().Unix()
	}
	s.data[key] = &copy
}

// LastTimestamp returns the most recent snapshot timestamp, or 0.
func (s *SnapshotStore) LastTimestamp(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last int64
	for _, snap := range s.data {
		if snap.Timestamp > last {
			last = snap.Timestamp
		}
	}
	return last, nil
}

// GetLastWeek returns the asset's prices since the start of day seven
// days ago, shifted by tzOffsetMinutes, ordered ascending.
func (s *SnapshotStore) GetLastWeek(_ context.Context, asset string, tzOffsetMinutes int) ([]*domain.PriceSample, error) {
	day := s.Now().UTC().AddDate(0, 0, -7)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(tzOffsetMinutes) * time.Minute).Unix()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, snap := range s.data {
		if snap.Asset == asset && snap.Timestamp >= start {
			result = append(result, &domain.PriceSample{Timestamp: snap.Timestamp, Price: snap.USDPrice})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	return result, nil
}

// GetLastMonth returns the earliest sample of each UTC calendar day at
// or after the 30-day cutoff, ordered ascending.
func (s *SnapshotStore) GetLastMonth(_ context.Context, asset string) ([]*domain.PriceSample, error) {
	start := s.Now().UTC().AddDate(0, 0, -30).Unix()

	s.mu.RLock()
	defer s.mu.RUnlock()

	earliest := make(map[string]*domain.Snapshot) // keyed by calendar day
	for _, snap := range s.data {
		if snap.Asset != asset || snap.Timestamp < start {
			continue
		}
		day := time.Unix(snap.Timestamp, 0).UTC().Format("2006-01-02")
		if cur, ok := earliest[day]; !ok || snap.Timestamp < cur.Timestamp {
			earliest[day] = snap
		}
	}

	var result []*domain.PriceSample
	for _, snap := range earliest {
		result = append(result, &domain.PriceSample{Timestamp: snap.Timestamp, Price: snap.USDPrice})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	return result, nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// All returns all stored snapshots ordered by (agent, asset, timestamp).
func (s *SnapshotStore) All() []*domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Snapshot, 0, len(s.data))
	for _, snap := range s.data {
		copy := *snap
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AgentAddress != result[j].AgentAddress {
			return result[i].AgentAddress < result[j].AgentAddress
		}
		if result[i].Asset != result[j].Asset {
			return result[i].Asset < result[j].Asset
		}
		return result[i].Timestamp < result[j].Timestamp
	})
	return result
}
