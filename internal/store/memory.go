package store

import (
	"context"
	"sync"
)

// Memory keeps content units in a map. Used by tests and dry runs.
type Memory struct {
	mu    sync.RWMutex
	units map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{units: make(map[string]string)}
}

func (s *Memory) Exists(ctx context.Context, kind Kind, pos Position) (bool, error) {
	key, err := Key(kind, pos)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.units[key]
	return ok, nil
}

func (s *Memory) Save(ctx context.Context, kind Kind, pos Position, text string) error {
	key, err := Key(kind, pos)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[key] = text
	return nil
}

// Get returns the stored text for a unit and whether it is present.
func (s *Memory) Get(kind Kind, pos Position) (string, bool) {
	key, err := Key(kind, pos)
	if err != nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.units[key]
	return text, ok
}

// Len returns the number of stored units.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}
