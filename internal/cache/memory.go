package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMemorySize bounds a memory store created with a non-positive size.
const DefaultMemorySize = 64 * 1024 * 1024

// MemoryStore is an in-process LRU cache with TTL, sized in bytes.
type MemoryStore struct {
	entries     map[string]*entry
	mutex       sync.Mutex
	maxSize     int64
	currentSize int64
	ttl         time.Duration
	// LRU list with sentinel head and tail
	head *entry
	tail *entry

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type entry struct {
	key       string
	value     []byte
	createdAt time.Time
	prev      *entry
	next      *entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store holding at most maxSize bytes.
func NewMemoryStore(maxSize int64, ttl time.Duration) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMemorySize
	}
	s := &MemoryStore{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		head:    &entry{},
		tail:    &entry{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses.Add(1)
		return nil, false, nil
	}
	if expired(e.createdAt, s.ttl) {
		s.remove(e)
		s.misses.Add(1)
		return nil, false, nil
	}

	s.moveToFront(e)
	s.hits.Add(1)
	return e.value, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, body []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	size := int64(len(body))
	if existing, ok := s.entries[key]; ok {
		s.currentSize += size - int64(len(existing.value))
		existing.value = body
		existing.createdAt = time.Now()
		s.moveToFront(existing)
		s.evict(existing)
		return nil
	}

	e := &entry{key: key, value: body, createdAt: time.Now()}
	s.entries[key] = e
	s.currentSize += size
	s.addToFront(e)
	s.evict(e)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if e, ok := s.entries[key]; ok {
		s.remove(e)
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries = make(map[string]*entry)
	s.currentSize = 0
	s.head.next = s.tail
	s.tail.prev = s.head

	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
	return nil
}

func (s *MemoryStore) Stats() Stats {
	s.mutex.Lock()
	count, size := len(s.entries), s.currentSize
	s.mutex.Unlock()

	return Stats{
		Backend:   "memory",
		Entries:   count,
		Bytes:     size,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}

func (s *MemoryStore) Close() error { return nil }

// evict drops least recently used entries until the store fits, never
// dropping keep. An entry larger than the whole store is itself dropped.
func (s *MemoryStore) evict(keep *entry) {
	for s.currentSize > s.maxSize && s.tail.prev != s.head {
		lru := s.tail.prev
		if lru == keep {
			if s.head.next == keep {
				s.remove(keep)
				s.evictions.Add(1)
			}
			return
		}
		s.remove(lru)
		s.evictions.Add(1)
	}
}

func (s *MemoryStore) remove(e *entry) {
	s.unlink(e)
	delete(s.entries, e.key)
	s.currentSize -= int64(len(e.value))
}

func (s *MemoryStore) addToFront(e *entry) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *MemoryStore) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (s *MemoryStore) moveToFront(e *entry) {
	s.unlink(e)
	s.addToFront(e)
}
