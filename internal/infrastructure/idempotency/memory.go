package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is used by tests and single-process deployments.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return "", false, nil
	}
	if !record.expiresAt.IsZero() && !s.now().Before(record.expiresAt) {
		delete(s.records, key)
		return "", false, nil
	}
	return record.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.records[key] = memoryRecord{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}
