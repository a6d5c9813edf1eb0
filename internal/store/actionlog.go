package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/session"
	"github.com/archdesk/archdesk/internal/tools"
)

// ActionLog is an append-only audit trail of plan status changes. It
// implements action.Recorder.
type ActionLog struct {
	db  *DB
	now func() time.Time
}

func NewActionLog(db *DB) *ActionLog {
	return &ActionLog{db: db, now: time.Now}
}

// Entry is one recorded transition.
type Entry struct {
	PlanID      string
	SessionID   string
	ToolName    string
	Status      action.Status
	Destructive bool
	Input       map[string]any
	Result      *tools.Result
	RecordedAt  time.Time
}

func (l *ActionLog) RecordTransition(ctx context.Context, p action.Plan) error {
	input, err := json.Marshal(p.Input)
	if err != nil {
		return fmt.Errorf("action log: marshal input: %w", err)
	}
	result := []byte("null")
	if p.Result != nil {
		if result, err = json.Marshal(p.Result); err != nil {
			return fmt.Errorf("action log: marshal result: %w", err)
		}
	}
	destructive := 0
	if p.Destructive {
		destructive = 1
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO action_log (plan_id, session_id, tool_name, status, destructive, input, result, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, session.IDFrom(ctx), p.ToolName, string(p.Status), destructive,
		string(input), string(result), l.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("action log: %w", err)
	}
	return nil
}

// History returns the transitions of one plan in the order they happened.
func (l *ActionLog) History(ctx context.Context, planID string) ([]Entry, error) {
	return l.query(ctx, `WHERE plan_id = ?`, planID)
}

// Recent returns the latest transitions of a session, newest first.
func (l *ActionLog) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries, err := l.query(ctx, `WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (l *ActionLog) query(ctx context.Context, where string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT plan_id, session_id, tool_name, status, destructive, input, result, recorded_at
		 FROM action_log `+where+` ORDER BY recorded_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("action log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                         Entry
			status, input, res, stamp string
			destructive               int
		)
		if err := rows.Scan(&e.PlanID, &e.SessionID, &e.ToolName, &status, &destructive, &input, &res, &stamp); err != nil {
			return nil, err
		}
		e.Status = action.Status(status)
		e.Destructive = destructive != 0
		_ = json.Unmarshal([]byte(input), &e.Input)
		if res != "null" {
			var r tools.Result
			if json.Unmarshal([]byte(res), &r) == nil {
				e.Result = &r
			}
		}
		e.RecordedAt, _ = time.Parse(timeLayout, stamp)
		out = append(out, e)
	}
	return out, rows.Err()
}
