package embcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/servicesearch/internal/db"
)

// MemoryStore is an in-process LRU with a single TTL for every entry.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryStore creates an LRU holding at most size entries for ttl each.
// A zero ttl keeps entries until evicted by size.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns db.ErrKeyNotFound for a missing or expired key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// SetWithTTL stores value. The per-call ttl is ignored in favor of the store-wide one.
func (m *MemoryStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, value)
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryStore) Len() int { return m.lru.Len() }
