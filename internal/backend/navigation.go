package backend

import (
	"context"
	"fmt"

	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/tools"
)

var detailPages = map[string]string{
	"office":     "office-detail",
	"project":    "project-detail",
	"regulation": "regulation-detail",
	"note":       "notes",
	"meditation": "meditations",
}

type Navigation struct {
	app *appcontext.Store
}

func (n *Navigation) Execute(_ context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	switch in := in.(type) {
	case *tools.NavigateInput:
		n.app.SetCurrentPage(in.Page)
		n.app.AddRecentAction("navigated to " + in.Page)
		return tools.OK(fmt.Sprintf("Opened %s.", in.Page), map[string]string{"page": in.Page}), nil

	case *tools.OpenRecordInput:
		page, ok := detailPages[in.EntityType]
		if !ok {
			return tools.Result{}, fmt.Errorf("unknown entity type %q", in.EntityType)
		}
		n.app.SetCurrentPage(page)
		n.app.SetSelectedEntity(&appcontext.Entity{Type: in.EntityType, ID: in.ID})
		n.app.AddRecentAction(fmt.Sprintf("opened %s %s", in.EntityType, in.ID))
		return tools.OK(fmt.Sprintf("Opened %s %s.", in.EntityType, in.ID),
			map[string]string{"page": page, "id": in.ID}), nil
	}
	return tools.Result{}, unexpectedInput(def, in)
}
