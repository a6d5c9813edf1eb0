package appcontext

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestContextForAI(t *testing.T) {
	s := New()
	s.SetCurrentPage("offices-list")
	s.SetSelectedEntity(&Entity{Type: "office", ID: "o1", Name: "Studio North"})
	s.AddRecentAction("created office Studio North")
	s.AddRecentAction("opened offices-list")

	got := s.ContextForAI()
	for _, want := range []string{
		"Current page: offices-list",
		"Selected office: Studio North (id o1)",
		"- opened offices-list\n- created office Studio North",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q:\n%s", want, got)
		}
	}

	s.SetSelectedEntity(nil)
	if strings.Contains(s.ContextForAI(), "Selected") {
		t.Error("selection not cleared")
	}
}

func TestRecentActionsBounded(t *testing.T) {
	s := New()
	for i := 0; i < 15; i++ {
		s.AddRecentAction(fmt.Sprintf("action %d", i))
	}
	snap := s.Snapshot()
	if len(snap.RecentActions) != maxRecentActions {
		t.Fatalf("recent = %d, want %d", len(snap.RecentActions), maxRecentActions)
	}
	if snap.RecentActions[0].Description != "action 5" {
		t.Errorf("oldest kept = %q, want action 5", snap.RecentActions[0].Description)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetCurrentPage(fmt.Sprintf("p%d", i))
			s.AddRecentAction("x")
			_ = s.ContextForAI()
		}(i)
	}
	wg.Wait()
	if len(s.Snapshot().RecentActions) != 8 {
		t.Error("lost recent actions")
	}
}
