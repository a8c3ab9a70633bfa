package blob

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reseauechanges/annuaire/internal/common"
)

// MemoryStore is an in-process Store for tests. In manual-propagation mode
// it reproduces the backend's eventual list consistency: freshly put keys
// are fetchable through their locator right away but stay invisible to List
// until Propagate is called.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	pending map[string]struct{}
	manual  bool
	err     error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		pending: make(map[string]struct{}),
	}
}

// NewLaggingMemoryStore returns a store in manual-propagation mode.
func NewLaggingMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	s.manual = true
	return s
}

// Propagate makes all pending keys visible to List.
func (s *MemoryStore) Propagate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]struct{})
}

// FailWith forces every subsequent operation to return err; pass nil to
// restore normal behavior.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetRaw stores a document directly, bypassing propagation. Tests use it to
// seed legacy layouts.
func (s *MemoryStore) SetRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	var out []ObjectInfo
	for key := range s.objects {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if _, hidden := s.pending[key]; hidden {
			continue
		}
		out = append(out, ObjectInfo{Key: key, Locator: key})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) Fetch(_ context.Context, locator string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	data, ok := s.objects[locator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, locator)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, _ PutOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}

	s.objects[key] = append([]byte(nil), data...)
	if s.manual {
		s.pending[key] = struct{}{}
	}
	return key, nil
}

func (s *MemoryStore) Delete(_ context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	delete(s.objects, locator)
	delete(s.pending, locator)
	return nil
}
