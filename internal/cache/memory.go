package cache

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
	forever   bool
}

func (e memEntry) expired(now time.Time) bool {
	return !e.forever && now.After(e.expiresAt)
}

// MemoryStore is an in-process Store with per-entry absolute expiry.
// Expired entries are discarded lazily, on the next operation that touches
// their key; there is no background sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	order   []string // key insertion order
	size    int      // live entries, adjusted on size-affecting operations
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.expired(time.Now()) {
		s.evictLocked(key)
		return nil, ErrNotFound
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTTL, ttl)
	}
	s.setEntry(key, memEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (s *MemoryStore) SetForever(_ context.Context, key string, value []byte) error {
	s.setEntry(key, memEntry{value: value, forever: true})
	return nil
}

func (s *MemoryStore) setEntry(key string, entry memEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		if old.expired(time.Now()) {
			// An expired entry counts as absent: the key is re-inserted at
			// the end of the iteration order.
			s.evictLocked(key)
		} else {
			s.entries[key] = entry
			return
		}
	}
	s.entries[key] = entry
	s.order = append(s.order, key)
	s.size++
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return ErrNotFound
	}
	if entry.expired(time.Now()) {
		s.evictLocked(key)
		return ErrNotFound
	}
	s.evictLocked(key)
	return nil
}

func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memEntry)
	s.order = nil
	s.size = 0
	return nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size, nil
}

// evictLocked removes key and decrements the live-entry counter.
// Caller must hold s.mu.
func (s *MemoryStore) evictLocked(key string) {
	delete(s.entries, key)
	if i := slices.Index(s.order, key); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.size--
}

// Keys yields live keys in insertion order. Each key is checked for expiry
// as the sequence reaches it, so the order is not stable across expirations.
func (s *MemoryStore) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, key := range s.snapshotOrder() {
			if _, ok := s.liveValue(key); !ok {
				continue
			}
			if !yield(key) {
				return
			}
		}
	}
}

// Entries yields live (key, value) pairs in insertion order.
func (s *MemoryStore) Entries() iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		for _, key := range s.snapshotOrder() {
			value, ok := s.liveValue(key)
			if !ok {
				continue
			}
			if !yield(key, value) {
				return
			}
		}
	}
}

func (s *MemoryStore) snapshotOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

func (s *MemoryStore) liveValue(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		s.evictLocked(key)
		return nil, false
	}
	return entry.value, true
}

// snapshotEntry is the on-disk representation of one entry. Expiry is stored
// as an absolute timestamp so a restored store honors the original deadlines.
type snapshotEntry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
	Forever   bool
}

// Persist writes the full store state to w as an opaque snapshot blob.
func (s *MemoryStore) Persist(w io.Writer) error {
	s.mu.Lock()
	snapshot := make([]snapshotEntry, 0, len(s.order))
	for _, key := range s.order {
		entry := s.entries[key]
		snapshot = append(snapshot, snapshotEntry{
			Key:       key,
			Value:     entry.value,
			ExpiresAt: entry.expiresAt,
			Forever:   entry.forever,
		})
	}
	s.mu.Unlock()

	if err := gob.NewEncoder(w).Encode(snapshot); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Restore replaces the store state with a snapshot previously written by
// Persist. Entries whose deadline has passed in the meantime are kept and
// discarded lazily, like any other expired entry.
func (s *MemoryStore) Restore(r io.Reader) error {
	var snapshot []snapshotEntry
	if err := gob.NewDecoder(r).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memEntry, len(snapshot))
	s.order = make([]string, 0, len(snapshot))
	for _, e := range snapshot {
		s.entries[e.Key] = memEntry{value: e.Value, expiresAt: e.ExpiresAt, forever: e.Forever}
		s.order = append(s.order, e.Key)
	}
	s.size = len(snapshot)
	return nil
}
