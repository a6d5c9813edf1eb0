package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/session"
	"github.com/archdesk/archdesk/internal/tools"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenAndMigrations(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var v int
	if err := db.SQLDB().QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		t.Fatalf("read schema_version: %v", err)
	}
	if v != 1 {
		t.Errorf("schema_version = %d, want 1", v)
	}

	// Re-open: idempotent, no error
	db2, err := Open(Options{Driver: DriverSQLite, DataDir: dir})
	if err != nil {
		t.Fatalf("Open again: %v", err)
	}
	defer db2.Close()
	if err := db2.SQLDB().QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil || v != 1 {
		t.Errorf("schema_version after re-open = %d (%v), want 1", v, err)
	}
}

func TestOpenRejectsBadOptions(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("expected error without data dir")
	}
	if _, err := Open(Options{Driver: DriverPostgres}); err == nil {
		t.Error("expected error without dsn")
	}
	if _, err := Open(Options{Driver: "oracle", DataDir: t.TempDir()}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	if got := pg.Rebind("SELECT a FROM t WHERE x = ? AND y = ?"); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Errorf("Rebind = %q", got)
	}
	lite := &DB{driver: DriverSQLite}
	if got := lite.Rebind("x = ?"); got != "x = ?" {
		t.Errorf("sqlite Rebind = %q", got)
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(openTestDB(t), 0)

	if _, err := s.Load(ctx, "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Load missing: err = %v, want ErrNotFound", err)
	}

	sess := session.New("s1").Append(
		session.UserTurn("go to regulations"),
		session.AssistantTurn(provider.TextBlock("You are on the regulations page.")),
	)
	sess.Metadata = map[string]string{"user": "u1"}
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Turns) != 2 || got.LastText(provider.RoleAssistant) != "You are on the regulations page." {
		t.Errorf("turns = %+v", got.Turns)
	}
	if got.Metadata["user"] != "u1" {
		t.Errorf("metadata = %v", got.Metadata)
	}

	sess = got.Append(session.UserTurn("thanks"))
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	got, _ = s.Load(ctx, "s1")
	if len(got.Turns) != 3 {
		t.Errorf("turns after update = %d, want 3", len(got.Turns))
	}

	ids, err := s.List(ctx)
	if err != nil || len(ids) != 1 {
		t.Errorf("List = %v, %v", ids, err)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "s1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("after delete err = %v", err)
	}
}

func TestSessionStoreTrimsAndPrunes(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(openTestDB(t), 2)

	sess := session.New("s1").Append(
		session.UserTurn("a"), session.AssistantTurn(provider.TextBlock("b")),
		session.UserTurn("c"), session.AssistantTurn(provider.TextBlock("d")),
	)
	if err := s.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Load(ctx, "s1")
	if len(got.Turns) != 2 || got.Turns[0].Role != provider.RoleUser {
		t.Errorf("trimmed turns = %+v", got.Turns)
	}

	old := session.New("old")
	old.UpdatedAt = time.Now().Add(-72 * time.Hour)
	if err := s.Save(ctx, old); err != nil {
		t.Fatal(err)
	}
	n, err := s.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if _, err := s.Load(ctx, "s1"); err != nil {
		t.Errorf("fresh session pruned: %v", err)
	}
}

func TestActionLogRecordsTransitions(t *testing.T) {
	log := NewActionLog(openTestDB(t))
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	log.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	ctx := session.WithID(context.Background(), "sess-1")
	p := action.Plan{
		ID:          "plan-1",
		ToolName:    "delete_office",
		Input:       map[string]any{"name": "Test Architecture"},
		Destructive: true,
		Status:      action.StatusExecuting,
	}
	if err := log.RecordTransition(ctx, p); err != nil {
		t.Fatal(err)
	}
	res := tools.OK("Deleted office Test Architecture", map[string]any{"id": "o1"})
	p.Status, p.Result = action.StatusCompleted, &res
	if err := log.RecordTransition(ctx, p); err != nil {
		t.Fatal(err)
	}

	hist, err := log.History(context.Background(), "plan-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("history = %d entries, want 2", len(hist))
	}
	if hist[0].Status != action.StatusExecuting || hist[1].Status != action.StatusCompleted {
		t.Errorf("order = %s, %s", hist[0].Status, hist[1].Status)
	}
	if hist[1].Result == nil || hist[1].Result.Message != "Deleted office Test Architecture" {
		t.Errorf("result = %+v", hist[1].Result)
	}
	if !hist[0].Destructive || hist[0].SessionID != "sess-1" || hist[0].Input["name"] != "Test Architecture" {
		t.Errorf("entry = %+v", hist[0])
	}

	recent, err := log.Recent(context.Background(), "sess-1", 1)
	if err != nil || len(recent) != 1 || recent[0].Status != action.StatusCompleted {
		t.Errorf("Recent = %+v, %v", recent, err)
	}
}
