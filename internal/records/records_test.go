package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archdesk/archdesk/internal/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.Open(store.Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestOfficeLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	o, err := s.CreateOffice(ctx, Office{Name: "Test Architecture", City: "Berlin", Country: "Germany"})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	_, err = s.CreateOffice(ctx, Office{Name: "Studio North", City: "Oslo"})
	require.NoError(t, err)

	found, err := s.SearchOffices(ctx, "berlin", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Test Architecture", found[0].Name)

	all, err := s.SearchOffices(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := s.UpdateOffice(ctx, Ref{Name: "test architecture"}, Office{Website: "https://test.example"})
	require.NoError(t, err)
	assert.Equal(t, "https://test.example", updated.Website)
	assert.Equal(t, "Berlin", updated.City)

	_, err = s.UpdateOffice(ctx, Ref{ID: o.ID}, Office{})
	assert.Error(t, err)

	id, err := s.DeleteOffice(ctx, Ref{Name: "Test Architecture"})
	require.NoError(t, err)
	assert.Equal(t, o.ID, id)

	_, err = s.GetOffice(ctx, Ref{ID: o.ID})
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.DeleteOffice(ctx, Ref{Name: "Test Architecture"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAmbiguousName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _ = s.CreateProject(ctx, Project{Name: "Harbor Baths", Location: "Copenhagen"})
	_, _ = s.CreateProject(ctx, Project{Name: "harbor baths", Location: "Aarhus"})

	_, err := s.DeleteProject(ctx, Ref{Name: "Harbor Baths"})
	assert.True(t, errors.Is(err, ErrAmbiguous))
}

func TestProjectsAndRegulations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	p, err := s.CreateProject(ctx, Project{Name: "Harbor Baths", OfficeName: "BIG", Status: "design", Year: 2024})
	require.NoError(t, err)
	p, err = s.UpdateProject(ctx, Ref{ID: p.ID}, Project{Status: "construction"})
	require.NoError(t, err)
	assert.Equal(t, "construction", p.Status)
	assert.Equal(t, 2024, p.Year)

	got, err := s.SearchProjects(ctx, "construction", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = s.CreateRegulation(ctx, Regulation{Code: "IBC 1004", Title: "Occupant load", Jurisdiction: "US"})
	require.NoError(t, err)
	regs, err := s.SearchRegulations(ctx, "ibc", 5)
	require.NoError(t, err)
	require.Len(t, regs, 1)

	_, err = s.DeleteRegulation(ctx, Ref{Name: "IBC 1004"})
	require.NoError(t, err)
	regs, _ = s.SearchRegulations(ctx, "", 5)
	assert.Empty(t, regs)
}

func TestNotesAndMeditations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	n, err := s.SaveNote(ctx, Note{Title: "Site visit", Content: "- check drainage", Tags: []string{"site"}})
	require.NoError(t, err)
	notes, err := s.ListNotes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, n.ID, notes[0].ID)
	assert.Equal(t, []string{"site"}, notes[0].Tags)

	for _, c := range []string{"first", "second", "third"} {
		_, err := s.SaveMeditation(ctx, Meditation{Title: c, Content: c})
		require.NoError(t, err)
	}
	meds, err := s.ListMeditations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, meds, 2)
	assert.Equal(t, "third", meds[0].Title)
}
