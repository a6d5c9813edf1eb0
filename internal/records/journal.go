package records

import (
	"context"
	"encoding/json"
	"fmt"
)

func (s *Store) SaveNote(ctx context.Context, n Note) (Note, error) {
	t, ts := s.stamp()
	n.ID, n.CreatedAt = s.newID(), t
	if n.Tags == nil {
		n.Tags = []string{}
	}
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return Note{}, fmt.Errorf("save note: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, string(tags), ts)
	if err != nil {
		return Note{}, fmt.Errorf("save note: %w", err)
	}
	return n, nil
}

func (s *Store) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, tags, created_at FROM notes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Note
	for rows.Next() {
		var n Note
		var tags, ca string
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &tags, &ca); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tags), &n.Tags)
		n.CreatedAt = parseTime(ca)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) SaveMeditation(ctx context.Context, m Meditation) (Meditation, error) {
	t, ts := s.stamp()
	m.ID, m.CreatedAt = s.newID(), t
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meditations (id, title, content, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.Title, m.Content, ts)
	if err != nil {
		return Meditation{}, fmt.Errorf("save meditation: %w", err)
	}
	return m, nil
}

// ListMeditations returns the newest entries first.
func (s *Store) ListMeditations(ctx context.Context, limit int) ([]Meditation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, created_at FROM meditations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list meditations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Meditation
	for rows.Next() {
		var m Meditation
		var ca string
		if err := rows.Scan(&m.ID, &m.Title, &m.Content, &ca); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(ca)
		out = append(out, m)
	}
	return out, rows.Err()
}
