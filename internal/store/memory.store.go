package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const feedBuffer = 64

// MemoryStore is an in-process Store used by tests and local development.
// It keeps full Store semantics including change feeds.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage

	subMu   sync.Mutex
	subs    map[Scope]map[int]chan ChangeEvent
	nextSub int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]json.RawMessage),
		subs: make(map[Scope]map[int]chan ChangeEvent),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string, dest any) error {
	if err := validatePath(path); err != nil {
		return err
	}

	s.mu.RLock()
	raw, ok := s.docs[path]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	if err := validatePath(path); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.docs[path] = raw
	s.mu.Unlock()

	s.publish(ChangeEvent{Op: OpSet, Path: path, Data: raw})
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := validatePath(path); err != nil {
		return err
	}

	s.mu.Lock()
	merged := make(map[string]any)
	if raw, ok := s.docs[path]; ok {
		if err := json.Unmarshal(raw, &merged); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.docs[path] = raw
	s.mu.Unlock()

	s.publish(ChangeEvent{Op: OpSet, Path: path, Data: raw})
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.docs[path]
	delete(s.docs, path)
	s.mu.Unlock()

	if existed {
		s.publish(ChangeEvent{Op: OpRemove, Path: path})
	}
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, parentPath string, value any) (string, error) {
	if err := validatePath(parentPath); err != nil {
		return "", err
	}

	id := uuid.New().String()
	if err := s.Set(ctx, parentPath+"/"+id, value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) List(ctx context.Context, parentPath string) (map[string]json.RawMessage, error) {
	if err := validatePath(parentPath); err != nil {
		return nil, err
	}

	prefix := parentPath + "/"

	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make(map[string]json.RawMessage)
	for path, raw := range s.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		children[rest] = raw
	}
	return children, nil
}

func (s *MemoryStore) Subscribe(scope Scope) (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, feedBuffer)

	s.subMu.Lock()
	if s.subs[scope] == nil {
		s.subs[scope] = make(map[int]chan ChangeEvent)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[scope][id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if sub, ok := s.subs[scope][id]; ok {
			delete(s.subs[scope], id)
			close(sub)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *MemoryStore) publish(event ChangeEvent) {
	scope := ScopeOf(event.Path)

	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs[scope] {
		select {
		case ch <- event:
		default:
			// slow subscriber, drop rather than block writers
		}
	}
}
