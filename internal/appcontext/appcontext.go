package appcontext

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const maxRecentActions = 10

// Entity is the record the user currently has selected.
type Entity struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

type RecentAction struct {
	Description string    `json:"description" yaml:"description"`
	At          time.Time `json:"at" yaml:"at"`
}

// Snapshot is a point-in-time copy of the application state.
type Snapshot struct {
	CurrentPage    string         `json:"current_page" yaml:"current_page"`
	SelectedEntity *Entity        `json:"selected_entity,omitempty" yaml:"selected_entity,omitempty"`
	RecentActions  []RecentAction `json:"recent_actions,omitempty" yaml:"recent_actions,omitempty"`
}

// Store tracks what the user is looking at. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	page     string
	selected *Entity
	recent   []RecentAction
	now      func() time.Time
}

func New() *Store {
	return &Store{page: "home", now: time.Now}
}

func (s *Store) SetCurrentPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

func (s *Store) CurrentPage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// SetSelectedEntity selects e; nil clears the selection.
func (s *Store) SetSelectedEntity(e *Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		s.selected = nil
		return
	}
	cp := *e
	s.selected = &cp
}

// AddRecentAction records a description, keeping the newest ten.
func (s *Store) AddRecentAction(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, RecentAction{Description: description, At: s.now()})
	if over := len(s.recent) - maxRecentActions; over > 0 {
		s.recent = append([]RecentAction(nil), s.recent[over:]...)
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{CurrentPage: s.page, RecentActions: append([]RecentAction(nil), s.recent...)}
	if s.selected != nil {
		cp := *s.selected
		snap.SelectedEntity = &cp
	}
	return snap
}

// ContextForAI renders a short textual snapshot for prompts.
func (s *Store) ContextForAI() string {
	snap := s.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "Current page: %s\n", snap.CurrentPage)
	if e := snap.SelectedEntity; e != nil {
		if e.Name != "" {
			fmt.Fprintf(&b, "Selected %s: %s (id %s)\n", e.Type, e.Name, e.ID)
		} else {
			fmt.Fprintf(&b, "Selected %s: id %s\n", e.Type, e.ID)
		}
	}
	if len(snap.RecentActions) > 0 {
		b.WriteString("Recent actions:\n")
		for i := len(snap.RecentActions) - 1; i >= 0; i-- {
			fmt.Fprintf(&b, "- %s\n", snap.RecentActions[i].Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
