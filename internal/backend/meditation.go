package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/records"
	"github.com/archdesk/archdesk/internal/tools"
)

type Meditations struct {
	records *records.Store
	app     *appcontext.Store
}

func (m *Meditations) Execute(ctx context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	switch in := in.(type) {
	case *tools.MeditationInput:
		med, err := m.records.SaveMeditation(ctx, records.Meditation{Title: in.Title, Content: in.Content})
		if err != nil {
			return tools.Result{}, err
		}
		msg := fmt.Sprintf("Saved meditation %q.", med.Title)
		m.app.AddRecentAction(msg)
		return tools.OK(msg, med), nil

	case *tools.ListInput:
		meds, err := m.records.ListMeditations(ctx, in.Limit)
		if err != nil {
			return tools.Result{}, err
		}
		return tools.OK(fmt.Sprintf("Found %d meditation(s).", len(meds)), meds), nil
	}
	return tools.Result{}, unexpectedInput(def, in)
}

// SaveResult is the outcome of a direct save.
type SaveResult struct {
	Success bool
	Message string
}

// MeditationSaver stores raw user text as a meditation without going
// through the model. It is the fallback when the model refuses to save
// text the user wrote.
type MeditationSaver struct {
	records *records.Store
	app     *appcontext.Store
}

func NewMeditationSaver(rs *records.Store, app *appcontext.Store) *MeditationSaver {
	return &MeditationSaver{records: rs, app: app}
}

func (s *MeditationSaver) Save(ctx context.Context, text string) SaveResult {
	in := &tools.MeditationInput{Content: strings.TrimSpace(text)}
	if in.Content == "" {
		return SaveResult{Success: false, Message: "There is nothing to save."}
	}
	in.DefaultTitle()

	med, err := s.records.SaveMeditation(ctx, records.Meditation{Title: in.Title, Content: in.Content})
	if err != nil {
		return SaveResult{Success: false, Message: fmt.Sprintf("Could not save your meditation: %v", err)}
	}
	if s.app != nil {
		s.app.AddRecentAction(fmt.Sprintf("saved meditation %q", med.Title))
	}
	return SaveResult{Success: true, Message: fmt.Sprintf("Saved your meditation %q.", med.Title)}
}
