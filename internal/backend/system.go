package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/tools"
)

var categoryOrder = []tools.Category{
	tools.CategoryNavigation, tools.CategoryDatabase, tools.CategoryWeb,
	tools.CategoryNoteSystem, tools.CategoryMeditation, tools.CategorySystem,
}

type System struct {
	registry *tools.Registry
	app      *appcontext.Store
}

func (s *System) Execute(_ context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	switch def.Name {
	case "get_help":
		h, ok := in.(*tools.HelpInput)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		return tools.OK(s.help(tools.Category(h.Category)), nil), nil
	case "get_current_context":
		return tools.OK(s.app.ContextForAI(), s.app.Snapshot()), nil
	}
	return tools.Result{}, fmt.Errorf("system backend cannot run %s", def.Name)
}

func (s *System) help(only tools.Category) string {
	var b strings.Builder
	b.WriteString("I can help with the following:\n")
	for _, c := range categoryOrder {
		if only != "" && c != only {
			continue
		}
		defs := s.registry.ByCategory(c)
		if len(defs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", c)
		for _, d := range defs {
			note := ""
			switch {
			case d.Destructive:
				note = " (asks for confirmation, cannot be undone)"
			case d.RequiresApproval:
				note = " (asks for confirmation)"
			}
			fmt.Fprintf(&b, "- %s: %s%s\n", d.Name, d.Description, note)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
