package backend

import (
	"context"
	"fmt"

	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/records"
	"github.com/archdesk/archdesk/internal/tools"
)

type Database struct {
	records *records.Store
	app     *appcontext.Store
}

func ref(r tools.RecordRef) records.Ref {
	return records.Ref{ID: r.ID, Name: r.Name}
}

func (d *Database) Execute(ctx context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	switch def.Name {
	case "search_offices", "search_projects", "search_regulations":
		q, ok := in.(*tools.SearchInput)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		return d.search(ctx, def.Name, q)

	case "create_office":
		o, ok := in.(*tools.OfficeInput)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		rec, err := d.records.CreateOffice(ctx, records.Office{
			Name: o.Name, City: o.City, Country: o.Country, Website: o.Website, Description: o.Description,
		})
		return d.done(rec, err, "Created office %s.", rec.Name)

	case "update_office":
		o, ok := in.(*tools.OfficeUpdateInput)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		rec, err := d.records.UpdateOffice(ctx, ref(o.RecordRef), records.Office{
			Name: o.NewName, City: o.City, Country: o.Country, Website: o.Website, Description: o.Description,
		})
		return d.done(rec, err, "Updated office %s.", rec.Name)

	case "create_project":
		p, ok := in.(*tools.ProjectInput)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		rec, err := d.records.CreateProject(ctx, records.Project{
			Name: p.Name, OfficeName: p.OfficeName, Location: p.Location, Status: p.Status, Year: p.Year,
		})
		return d.done(rec, err, "Created project %s.", rec.Name)

	case "update_project":
		p, ok := in.(*tools.ProjectUpdateInput)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		rec, err := d.records.UpdateProject(ctx, ref(p.RecordRef), records.Project{
			Name: p.NewName, Location: p.Location, Status: p.Status, Year: p.Year,
		})
		return d.done(rec, err, "Updated project %s.", rec.Name)

	case "create_regulation":
		r, ok := in.(*tools.RegulationInput)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		rec, err := d.records.CreateRegulation(ctx, records.Regulation{
			Code: r.Code, Title: r.Title, Jurisdiction: r.Jurisdiction, Summary: r.Summary,
		})
		return d.done(rec, err, "Created regulation %s.", rec.Title)

	case "delete_office", "delete_project", "delete_regulation":
		r, ok := in.(*tools.RecordRef)
		if !ok {
			return tools.Result{}, unexpectedInput(def, in)
		}
		return d.delete(ctx, def.Name, ref(*r))
	}
	return tools.Result{}, fmt.Errorf("database backend cannot run %s", def.Name)
}

func (d *Database) search(ctx context.Context, tool string, q *tools.SearchInput) (tools.Result, error) {
	var (
		rows any
		n    int
		err  error
	)
	switch tool {
	case "search_offices":
		var r []records.Office
		r, err = d.records.SearchOffices(ctx, q.Query, q.Limit)
		rows, n = r, len(r)
	case "search_projects":
		var r []records.Project
		r, err = d.records.SearchProjects(ctx, q.Query, q.Limit)
		rows, n = r, len(r)
	default:
		var r []records.Regulation
		r, err = d.records.SearchRegulations(ctx, q.Query, q.Limit)
		rows, n = r, len(r)
	}
	if err != nil {
		return tools.Result{}, err
	}
	return tools.OK(fmt.Sprintf("Found %d record(s).", n), rows), nil
}

func (d *Database) delete(ctx context.Context, tool string, r records.Ref) (tools.Result, error) {
	var (
		id   string
		err  error
		kind string
	)
	switch tool {
	case "delete_office":
		kind = "office"
		id, err = d.records.DeleteOffice(ctx, r)
	case "delete_project":
		kind = "project"
		id, err = d.records.DeleteProject(ctx, r)
	default:
		kind = "regulation"
		id, err = d.records.DeleteRegulation(ctx, r)
	}
	if err != nil {
		return tools.Result{}, err
	}
	msg := fmt.Sprintf("Deleted %s %s.", kind, r)
	d.app.AddRecentAction(msg)
	return tools.OK(msg, map[string]string{"id": id}), nil
}

func (d *Database) done(rec any, err error, format string, name string) (tools.Result, error) {
	if err != nil {
		return tools.Result{}, err
	}
	msg := fmt.Sprintf(format, name)
	d.app.AddRecentAction(msg)
	return tools.OK(msg, rec), nil
}
