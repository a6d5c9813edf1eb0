package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("session not found")

// Store persists sessions between calls.
type Store interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	// Prune removes sessions not updated since before and reports how many.
	Prune(ctx context.Context, before time.Time) (int, error)
}

// MemoryStore keeps sessions in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// WriteYAML encodes s for backup or transfer between stores.
func WriteYAML(w io.Writer, s Session) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding session %s: %w", s.ID, err)
	}
	return enc.Close()
}

// ReadYAML decodes a session written by WriteYAML.
func ReadYAML(r io.Reader) (Session, error) {
	var s Session
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return Session{}, fmt.Errorf("parsing session: %w", err)
	}
	if s.ID == "" {
		return Session{}, errors.New("session has no id")
	}
	return s, nil
}
