package resultcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps results in process memory for single-instance deployments
// and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore constructs a store. maxEntries <= 0 means unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get implements analysis.ResultCache.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.expired(e) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, true, nil
}

// Set implements analysis.ResultCache. A non-positive ttl never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}
	payload := make([]byte, len(value))
	copy(payload, value)
	s.entries[key] = entry{payload: payload, expiresAt: exp}
	return nil
}

// evictLocked drops expired entries, or the entry closest to expiry when
// none have expired.
func (s *MemoryStore) evictLocked() {
	var (
		victim string
		soon   time.Time
	)
	for k, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, k)
			continue
		}
		if victim == "" || (!e.expiresAt.IsZero() && (soon.IsZero() || e.expiresAt.Before(soon))) {
			victim, soon = k, e.expiresAt
		}
	}
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries && victim != "" {
		delete(s.entries, victim)
	}
}

func (s *MemoryStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(s.now())
}

var _ analysis.ResultCache = (*MemoryStore)(nil)
