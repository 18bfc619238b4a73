package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/foodlog/backend/internal/domain"
)

const defaultCleanupInterval = 10 * time.Minute

// memoryItem represents a single stored value with optional expiration
type memoryItem struct {
	Value      []byte
	Expiration time.Time // zero means no expiry
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.Expiration.IsZero() && now.After(i.Expiration)
}

// MemoryStore is a thread-safe in-memory key-value store with TTL support
type MemoryStore struct {
	data  map[string]memoryItem
	mutex sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return newMemoryStore(defaultCleanupInterval)
}

func newMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]memoryItem),
		stop: make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired entries
	go s.cleanupExpired(cleanupInterval)

	return s
}

// Get retrieves a copy of the value stored under key
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.data[key]
	if !exists || item.expired(time.Now()) {
		return nil, domain.ErrKeyNotFound
	}

	return append([]byte(nil), item.Value...), nil
}

// Set stores a copy of value under key. A ttl of 0 never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item := memoryItem{Value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.Expiration = time.Now().Add(ttl)
	}
	s.data[key] = item

	return nil
}

// Delete removes a value from the store. Missing keys are not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Keys returns the sorted live keys starting with prefix
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := time.Now()
	keys := make([]string, 0)
	for key, item := range s.data {
		if strings.HasPrefix(key, prefix) && !item.expired(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// Size returns the current number of items in the store (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// cleanupExpired removes expired entries from the store periodically
func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.purge(time.Now())
		}
	}
}

func (s *MemoryStore) purge(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for key, item := range s.data {
		if item.expired(now) {
			delete(s.data, key)
		}
	}
}
