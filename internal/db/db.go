package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/heimdex/clip-agent/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the agent's sqlite handle. It holds render job history; session
// state lives in memory and in auto-save files.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// New opens (creating if needed) the database at dbPath, applies pending
// migrations and closes out render jobs orphaned by a previous run.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	logger = logging.WithComponent(logging.OrDiscard(logger), "db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers anyway; one connection keeps the pragmas
	// applied to every statement.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn, logger: logger}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	n, err := db.markInterruptedRenders(context.Background())
	if err != nil {
		logger.Warn("failed to mark interrupted render jobs", "error", err)
	} else if n > 0 {
		logger.Info("marked interrupted render jobs", "count", n)
	}

	return db, nil
}

func (d *DB) init() error {
	if err := d.conn.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := d.conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	if err := d.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

// migrate applies every embedded migration not yet recorded in
// _migrations, in file name order. Each runs in its own transaction
// together with its bookkeeping row.
func (d *DB) migrate() error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	applied, err := d.appliedMigrations()
	if err != nil {
		return err
	}

	for _, path := range names {
		name := filepath.Base(path)
		if applied[name] {
			continue
		}

		content, err := migrationsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if err := d.apply(name, string(content)); err != nil {
			return err
		}
		d.logger.Info("applied migration", "name", name)
	}
	return nil
}

func (d *DB) apply(name, script string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(script); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return tx.Commit()
}

// appliedMigrations returns the recorded migration names. A fresh database
// has no _migrations table yet; the first migration creates it.
func (d *DB) appliedMigrations() (map[string]bool, error) {
	applied := make(map[string]bool)

	var exists int
	err := d.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check migrations table: %w", err)
	}
	if exists == 0 {
		return applied, nil
	}

	rows, err := d.conn.Query("SELECT name FROM _migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// markInterruptedRenders closes out render jobs that were still running when
// the previous process exited. Their subprocesses died with it.
func (d *DB) markInterruptedRenders(ctx context.Context) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE render_jobs
		SET status = 'interrupted', error = 'interrupted by restart', finished_at = ?
		WHERE status = 'running'
	`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
