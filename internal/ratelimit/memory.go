package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxMemoryEntries bounds the fallback cache; crossing it triggers a prune of
// expired entries on the next write.
const maxMemoryEntries = 10000

type memoryEntry struct {
	t         time.Time
	expiresAt time.Time
}

// MemoryStore is the single-process fallback used when no redis url is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return time.Time{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return time.Time{}, false, nil
	}
	return entry.t, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, t time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{t: t, expiresAt: t.Add(ttl)}
	if len(s.entries) > maxMemoryEntries {
		s.prune()
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) prune() {
	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}
