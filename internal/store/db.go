package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the database. SQLite lives at DataDir/archdesk.db;
// PostgreSQL uses DSN.
type Options struct {
	Driver  string
	DataDir string
	DSN     string
}

// DB holds the connection and runs migrations on Open.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects and runs pending migrations. Caller must call Close when done.
func Open(opts Options) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch opts.Driver {
	case "", DriverSQLite:
		if opts.DataDir == "" {
			return nil, fmt.Errorf("store: data_dir is required")
		}
		if err := os.MkdirAll(opts.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		db, err = sql.Open("sqlite", filepath.Join(opts.DataDir, "archdesk.db")+"?_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("store: open db: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: WAL: %w", err)
		}
		opts.Driver = DriverSQLite
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("store: dsn is required for postgres")
		}
		db, err = sql.Open("postgres", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: open db: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: ping: %w", err)
		}
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", opts.Driver)
	}

	d := &DB{db: db, driver: opts.Driver}
	if err := d.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

// SQLDB returns the underlying *sql.DB. Do not close it directly; use Close.
func (d *DB) SQLDB() *sql.DB {
	return d.db
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *DB) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.Rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.Rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.Rebind(query), args...)
}

func (d *DB) runMigrations() error {
	if _, err := d.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL PRIMARY KEY)"); err != nil {
		return fmt.Errorf("migrations: create schema_version: %w", err)
	}
	current, err := d.currentVersion()
	if err != nil {
		return err
	}
	names, err := migrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		n, err := migrationNumber(name)
		if err != nil || n <= current {
			continue
		}
		data, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if err := d.applyMigration(name, n, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) applyMigration(name string, version int, stmts string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", name, err)
	}
	if _, err := tx.Exec(stmts); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %s: %w", name, err)
	}
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %s: clear version: %w", name, err)
	}
	if _, err := tx.Exec(d.Rebind("INSERT INTO schema_version (version) VALUES (?)"), version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %s: set version: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", name, err)
	}
	return nil
}

func (d *DB) currentVersion() (int, error) {
	var v sql.NullInt64
	err := d.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err == sql.ErrNoRows || (err == nil && !v.Valid) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migrations: read version: %w", err)
	}
	return int(v.Int64), nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func migrationNumber(name string) (int, error) {
	base := strings.TrimSuffix(name, ".sql")
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid migration name %q", name)
	}
	return strconv.Atoi(parts[0])
}
