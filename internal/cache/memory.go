package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Challenge state kept here is lost on
// restart, which invalidates in-flight CAPTCHA/OTP flows; acceptable given
// the short TTLs. Multi-instance deployments should use the Redis store
// instead.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]memoryEntry
	clock func() time.Time
}

type memoryEntry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]memoryEntry),
		clock: time.Now,
	}
}

func (s *MemoryStore) expiredLocked(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && now.After(entry.expiresAt)
}

// IncrementWithTTL increments a counter, starting a new window when the
// previous one elapsed.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok || s.expiredLocked(entry, now) {
		entry = memoryEntry{expiresAt: now.Add(window)}
	}
	entry.count++
	s.data[key] = entry

	return entry.count, entry.expiresAt.Sub(now), nil
}

// Set stores a value with the supplied TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	expiry := time.Time{}
	if ttl > 0 {
		expiry = s.clock().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = memoryEntry{value: value, expiresAt: expiry}
	return nil
}

// Get retrieves a value by key, respecting expiry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if s.expiredLocked(entry, now) {
		delete(s.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Take fetches and removes a key under one lock acquisition.
func (s *MemoryStore) Take(_ context.Context, key string) ([]byte, bool, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	delete(s.data, key)
	if s.expiredLocked(entry, now) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Delete removes keys from the store.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

// Sweep removes all expired entries and reports how many were evicted. The
// maintenance cleaner calls this periodically to bound memory.
func (s *MemoryStore) Sweep() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, entry := range s.data {
		if s.expiredLocked(entry, now) {
			delete(s.data, key)
			evicted++
		}
	}
	return evicted
}
