package records

import (
	"context"
	"errors"
	"fmt"
)

func (s *Store) CreateOffice(ctx context.Context, o Office) (Office, error) {
	t, ts := s.stamp()
	o.ID, o.CreatedAt, o.UpdatedAt = s.newID(), t, t
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offices (id, name, city, country, website, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.City, o.Country, o.Website, o.Description, ts, ts)
	if err != nil {
		return Office{}, fmt.Errorf("create office: %w", err)
	}
	return o, nil
}

// SearchOffices matches query against name, city and country. An empty
// query lists every office.
func (s *Store) SearchOffices(ctx context.Context, query string, limit int) ([]Office, error) {
	p := likePattern(query)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, city, country, website, description, created_at, updated_at FROM offices
		 WHERE LOWER(name) LIKE ? OR LOWER(city) LIKE ? OR LOWER(country) LIKE ?
		 ORDER BY name LIMIT ?`, p, p, p, limit)
	if err != nil {
		return nil, fmt.Errorf("search offices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Office
	for rows.Next() {
		var o Office
		var ca, ua string
		if err := rows.Scan(&o.ID, &o.Name, &o.City, &o.Country, &o.Website, &o.Description, &ca, &ua); err != nil {
			return nil, err
		}
		o.CreatedAt, o.UpdatedAt = parseTime(ca), parseTime(ua)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) GetOffice(ctx context.Context, ref Ref) (Office, error) {
	id, err := s.resolveID(ctx, "offices", "name", ref)
	if err != nil {
		return Office{}, err
	}
	var o Office
	var ca, ua string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, city, country, website, description, created_at, updated_at FROM offices WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.City, &o.Country, &o.Website, &o.Description, &ca, &ua)
	if err != nil {
		return Office{}, fmt.Errorf("get office: %w", err)
	}
	o.CreatedAt, o.UpdatedAt = parseTime(ca), parseTime(ua)
	return o, nil
}

// UpdateOffice applies the non-empty fields of changes to the office ref.
func (s *Store) UpdateOffice(ctx context.Context, ref Ref, changes Office) (Office, error) {
	id, err := s.resolveID(ctx, "offices", "name", ref)
	if err != nil {
		return Office{}, err
	}
	set, args := setClause([]field{
		{"name", changes.Name}, {"city", changes.City}, {"country", changes.Country},
		{"website", changes.Website}, {"description", changes.Description},
	})
	if err := s.update(ctx, "offices", id, set, args); err != nil {
		return Office{}, err
	}
	return s.GetOffice(ctx, Ref{ID: id})
}

func (s *Store) DeleteOffice(ctx context.Context, ref Ref) (string, error) {
	return s.deleteByRef(ctx, "offices", "name", ref)
}

func (s *Store) CreateProject(ctx context.Context, p Project) (Project, error) {
	t, ts := s.stamp()
	p.ID, p.CreatedAt, p.UpdatedAt = s.newID(), t, t
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, office_name, location, status, year, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.OfficeName, p.Location, p.Status, p.Year, ts, ts)
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *Store) SearchProjects(ctx context.Context, query string, limit int) ([]Project, error) {
	p := likePattern(query)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, office_name, location, status, year, created_at, updated_at FROM projects
		 WHERE LOWER(name) LIKE ? OR LOWER(office_name) LIKE ? OR LOWER(location) LIKE ? OR LOWER(status) LIKE ?
		 ORDER BY name LIMIT ?`, p, p, p, p, limit)
	if err != nil {
		return nil, fmt.Errorf("search projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Project
	for rows.Next() {
		var pr Project
		var ca, ua string
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.OfficeName, &pr.Location, &pr.Status, &pr.Year, &ca, &ua); err != nil {
			return nil, err
		}
		pr.CreatedAt, pr.UpdatedAt = parseTime(ca), parseTime(ua)
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, ref Ref) (Project, error) {
	id, err := s.resolveID(ctx, "projects", "name", ref)
	if err != nil {
		return Project{}, err
	}
	var pr Project
	var ca, ua string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, office_name, location, status, year, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&pr.ID, &pr.Name, &pr.OfficeName, &pr.Location, &pr.Status, &pr.Year, &ca, &ua)
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	pr.CreatedAt, pr.UpdatedAt = parseTime(ca), parseTime(ua)
	return pr, nil
}

func (s *Store) UpdateProject(ctx context.Context, ref Ref, changes Project) (Project, error) {
	id, err := s.resolveID(ctx, "projects", "name", ref)
	if err != nil {
		return Project{}, err
	}
	set, args := setClause([]field{
		{"name", changes.Name}, {"location", changes.Location},
		{"status", changes.Status}, {"year", changes.Year},
	})
	if err := s.update(ctx, "projects", id, set, args); err != nil {
		return Project{}, err
	}
	return s.GetProject(ctx, Ref{ID: id})
}

func (s *Store) DeleteProject(ctx context.Context, ref Ref) (string, error) {
	return s.deleteByRef(ctx, "projects", "name", ref)
}

func (s *Store) CreateRegulation(ctx context.Context, r Regulation) (Regulation, error) {
	t, ts := s.stamp()
	r.ID, r.CreatedAt, r.UpdatedAt = s.newID(), t, t
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO regulations (id, code, title, jurisdiction, summary, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Code, r.Title, r.Jurisdiction, r.Summary, ts, ts)
	if err != nil {
		return Regulation{}, fmt.Errorf("create regulation: %w", err)
	}
	return r, nil
}

func (s *Store) SearchRegulations(ctx context.Context, query string, limit int) ([]Regulation, error) {
	p := likePattern(query)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, title, jurisdiction, summary, created_at, updated_at FROM regulations
		 WHERE LOWER(code) LIKE ? OR LOWER(title) LIKE ? OR LOWER(jurisdiction) LIKE ?
		 ORDER BY code, title LIMIT ?`, p, p, p, limit)
	if err != nil {
		return nil, fmt.Errorf("search regulations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Regulation
	for rows.Next() {
		var r Regulation
		var ca, ua string
		if err := rows.Scan(&r.ID, &r.Code, &r.Title, &r.Jurisdiction, &r.Summary, &ca, &ua); err != nil {
			return nil, err
		}
		r.CreatedAt, r.UpdatedAt = parseTime(ca), parseTime(ua)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRegulation accepts a regulation's title or code as the ref name.
func (s *Store) DeleteRegulation(ctx context.Context, ref Ref) (string, error) {
	id, err := s.deleteByRef(ctx, "regulations", "title", ref)
	if !errors.Is(err, ErrNotFound) || ref.ID != "" {
		return id, err
	}
	return s.deleteByRef(ctx, "regulations", "code", ref)
}

func (s *Store) update(ctx context.Context, table, id, set string, args []any) error {
	if set == "" {
		return fmt.Errorf("update %s: no changes", table)
	}
	_, ts := s.stamp()
	args = append(args, ts, id)
	if _, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET `+set+`, updated_at = ? WHERE id = ?`, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}
