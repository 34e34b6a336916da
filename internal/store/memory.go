package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/metar-snapshot/internal/weather"
)

var (
	// ErrNotFound is returned when no snapshot matches a query.
	ErrNotFound = errors.New("no weather snapshot available")
)

// MemoryStore is a concurrency-safe in-memory history of snapshots,
// ordered by LastUpdated.
type MemoryStore struct {
	mu sync.RWMutex

	snapshots []weather.Snapshot

	// retention configuration
	maxHistory int           // max number of snapshots kept
	maxAge     time.Duration // optional max age for snapshots

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a snapshot and enforces retention.
func (s *MemoryStore) SaveSnapshot(snapshot weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.snapshots) > s.maxHistory {
		over := len(s.snapshots) - s.maxHistory
		s.snapshots = s.snapshots[over:]
	}

	// Enforce retention by age; the newest snapshot is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.snapshots)-1; i++ {
			if !s.snapshots[i].LastUpdated.Before(cutoff) {
				break
			}
		}
		s.snapshots = s.snapshots[i:]
	}
}

// GetLatest returns the most recent snapshot.
func (s *MemoryStore) GetLatest() (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

// GetRange returns all snapshots written between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Snapshot
	for _, snap := range s.snapshots {
		if !snap.LastUpdated.Before(from) && !snap.LastUpdated.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
