package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/archdesk/archdesk/internal/session"
)

// SessionStore is the SQL-backed session.Store.
type SessionStore struct {
	db       *DB
	maxTurns int // 0 = no cap
}

// NewSessionStore returns a session store on db. maxTurns caps the history
// kept per session (0 = no cap).
func NewSessionStore(db *DB, maxTurns int) *SessionStore {
	return &SessionStore{db: db, maxTurns: maxTurns}
}

func (s *SessionStore) Load(ctx context.Context, id string) (session.Session, error) {
	var turnsJSON, metadataJSON, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT turns, metadata, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&turnsJSON, &metadataJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, fmt.Errorf("%w: %q", session.ErrNotFound, id)
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("session load: %w", err)
	}

	sess := session.Session{ID: id, Turns: []session.Turn{}}
	if err := json.Unmarshal([]byte(turnsJSON), &sess.Turns); err != nil {
		return session.Session{}, fmt.Errorf("session load: decode turns: %w", err)
	}
	if metadataJSON != "" && metadataJSON != "null" {
		_ = json.Unmarshal([]byte(metadataJSON), &sess.Metadata)
	}
	sess.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return sess, nil
}

// Save upserts sess, trimming it to maxTurns first.
func (s *SessionStore) Save(ctx context.Context, sess session.Session) error {
	if sess.ID == "" {
		return errors.New("session persist: id is required")
	}
	if s.maxTurns > 0 {
		sess = sess.Trim(s.maxTurns)
	}
	turns := sess.Turns
	if turns == nil {
		turns = []session.Turn{}
	}
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("session persist: marshal turns: %w", err)
	}
	metadataJSON, _ := json.Marshal(sess.Metadata)

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, turns, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET turns = excluded.turns, metadata = excluded.metadata, updated_at = excluded.updated_at`,
		sess.ID, string(turnsJSON), string(metadataJSON),
		sess.CreatedAt.UTC().Format(timeLayout), sess.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("session persist: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// Prune deletes sessions not updated since before.
func (s *SessionStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`,
		before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("session prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// List returns all session ids, newest first.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
