package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is a thread-safe in-process Store with time-to-live expiration and a
// background janitor that sweeps expired entries.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*memoryItem

	stop     chan struct{}
	stopOnce sync.Once

	hits   int64
	misses int64
}

type memoryItem struct {
	value      []byte
	expiration int64 // unix nanos, 0 means no expiry
}

// NewMemory creates an in-memory store whose janitor runs at the given
// interval. A zero interval disables the janitor; expired entries are then
// only dropped lazily on read.
func NewMemory(cleanupInterval time.Duration) *Memory {
	m := &Memory{
		items: make(map[string]*memoryItem),
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.janitor(cleanupInterval)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	item, found := m.items[key]
	m.mu.RUnlock()

	if !found || item.expired(time.Now().UnixNano()) {
		m.mu.Lock()
		m.misses++
		m.mu.Unlock()
		return nil, false, nil
	}
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
	return item.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}
	m.mu.Lock()
	m.items[key] = &memoryItem{value: value, expiration: expiration}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// HitRate returns the fraction of reads served from the store.
func (m *Memory) HitRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := m.hits + m.misses
	if total == 0 {
		return 0
	}
	return float64(m.hits) / float64(total)
}

// Close stops the janitor.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.flushExpired()
		}
	}
}

func (m *Memory) flushExpired() {
	now := time.Now().UnixNano()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, item := range m.items {
		if item.expired(now) {
			delete(m.items, key)
		}
	}
}

func (i *memoryItem) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}
