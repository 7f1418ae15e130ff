// Package db keeps the playback run history in a local sqlite file.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// pragmas run on the single connection before migrations. WAL and the busy
// timeout let `lrctype -history` read while another process is recording.
var pragmas = []struct {
	name string
	stmt string
}{
	{"foreign keys", `PRAGMA foreign_keys = ON`},
	{"busy timeout", `PRAGMA busy_timeout = 5000`},
	{"journal mode", `PRAGMA journal_mode = WAL`},
}

// DB owns the history connection. Every run write goes through Runs.
type DB struct {
	conn *sql.DB
	runs *RunRepo
}

// Open creates the parent directory if needed, applies pragmas and brings
// the schema up to date. ":memory:" opens a throwaway database.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("history database path is empty; pass -db")
	}

	if path != memoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database %q: %w", path, err)
	}
	// One connection serializes the recorder and API readers, and keeps an
	// in-memory database alive for the whole process.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := setup(ctx, conn, path); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{conn: conn, runs: NewRunRepo(conn)}, nil
}

func setup(ctx context.Context, conn *sql.DB, path string) error {
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history database %q: %w", path, err)
	}
	for _, p := range pragmas {
		if p.name == "journal mode" && path == memoryPath {
			continue
		}
		if _, err := conn.ExecContext(ctx, p.stmt); err != nil {
			return fmt.Errorf("set %s: %w", p.name, err)
		}
	}
	return RunMigrations(ctx, conn)
}

// Runs returns the repository over the runs and run_errors tables.
func (d *DB) Runs() *RunRepo {
	return d.runs
}

func (d *DB) SQL() *sql.DB {
	return d.conn
}

func (d *DB) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
