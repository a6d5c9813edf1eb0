package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archdesk/archdesk/internal/store"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrAmbiguous = errors.New("more than one record matches")
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Office struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	Website     string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OfficeName string    `json:"office_name,omitempty"`
	Location   string    `json:"location,omitempty"`
	Status     string    `json:"status,omitempty"`
	Year       int       `json:"year,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Regulation struct {
	ID           string    `json:"id"`
	Code         string    `json:"code,omitempty"`
	Title        string    `json:"title"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Meditation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Ref names a record by id or, when the id is empty, by exact name
// (case-insensitive).
type Ref struct {
	ID   string
	Name string
}

func (r Ref) String() string {
	if r.ID != "" {
		return "id " + r.ID
	}
	return fmt.Sprintf("%q", r.Name)
}

// Store reads and writes architecture records.
type Store struct {
	db    *store.DB
	now   func() time.Time
	newID func() string
}

func New(db *store.DB) *Store {
	return &Store{db: db, now: time.Now, newID: uuid.NewString}
}

func (s *Store) stamp() (time.Time, string) {
	t := s.now().UTC()
	return t, t.Format(timeLayout)
}

func likePattern(q string) string {
	return "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(timeLayout, v)
	return t
}

// resolveID turns a Ref into a single id in table, matching nameCol.
func (s *Store) resolveID(ctx context.Context, table, nameCol string, ref Ref) (string, error) {
	if ref.ID != "" {
		var id string
		err := s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE id = ?`, ref.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s %s", ErrNotFound, strings.TrimSuffix(table, "s"), ref)
		}
		return id, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE LOWER(`+nameCol+`) = ? LIMIT 2`,
		strings.ToLower(strings.TrimSpace(ref.Name)))
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s %s", ErrNotFound, strings.TrimSuffix(table, "s"), ref)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s %s", ErrAmbiguous, strings.TrimSuffix(table, "s"), ref)
	}
}

func (s *Store) deleteByRef(ctx context.Context, table, nameCol string, ref Ref) (string, error) {
	id, err := s.resolveID(ctx, table, nameCol, ref)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("delete from %s: %w", table, err)
	}
	return id, nil
}

type field struct {
	col string
	val any
}

// setClause builds "a = ?, b = ?" from the fields with a non-zero value.
func setClause(fields []field) (string, []any) {
	var parts []string
	var args []any
	for _, f := range fields {
		switch v := f.val.(type) {
		case string:
			if v == "" {
				continue
			}
		case int:
			if v == 0 {
				continue
			}
		}
		parts = append(parts, f.col+" = ?")
		args = append(args, f.val)
	}
	return strings.Join(parts, ", "), args
}
