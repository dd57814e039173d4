package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ecosense-relay/internal/record"
)

// MemoryStore keeps the record in process memory and is safe for concurrent
// use. Values are held as canonical JSON so callers never share mutable
// references with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	values    map[string]json.RawMessage
	listeners map[int]Listener
	nextID    int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:    make(map[string]json.RawMessage),
		listeners: make(map[int]Listener),
	}
}

// Get returns the requested keys, or the full record when keys is empty.
func (s *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any)
	if len(keys) == 0 {
		for k := range s.values {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		raw, ok := s.values[k]
		if !ok {
			continue
		}
		var val any
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, fmt.Errorf("decode stored key %s: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// Set applies the patch key by key and notifies subscribers of the keys
// whose values actually changed.
func (s *MemoryStore) Set(ctx context.Context, patch record.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	var changed []string
	for _, k := range patch.Keys() {
		val := patch[k]
		if val == nil {
			if _, ok := s.values[k]; ok {
				delete(s.values, k)
				changed = append(changed, k)
			}
			continue
		}
		raw, err := json.Marshal(val)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("encode key %s: %w", k, err)
		}
		if prev, ok := s.values[k]; ok && bytes.Equal(prev, raw) {
			continue
		}
		s.values[k] = raw
		changed = append(changed, k)
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if len(changed) == 0 {
		return nil
	}
	for _, l := range listeners {
		l(append([]string(nil), changed...))
	}
	return nil
}

// Subscribe registers a change listener.
func (s *MemoryStore) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

var _ Store = (*MemoryStore)(nil)
