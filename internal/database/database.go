// Package database opens the receiver's photo store.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wb-go/wbf/dbpg"
	_ "modernc.org/sqlite"

	"github.com/aliskhannn/photo-pipeline/internal/config"
)

// migration is a single schema change.
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered schema history. The DDL is valid for both
// PostgreSQL and SQLite.
var migrations = []migration{
	{
		version: 1,
		name:    "create_photos_table",
		up: `
			CREATE TABLE IF NOT EXISTS photos (
				id         TEXT PRIMARY KEY,
				project_id TEXT NOT NULL,
				src        TEXT NOT NULL DEFAULT '',
				s3_key     TEXT NOT NULL UNIQUE,
				gps        TEXT,
				date       TEXT
			)`,
	},
	{
		version: 2,
		name:    "index_photos_project_id",
		up:      `CREATE INDEX IF NOT EXISTS idx_photos_project_id ON photos(project_id)`,
	},
}

// execer runs schema statements.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens the SQLite database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; an in-memory database also lives
	// in exactly one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenPostgres connects to the PostgreSQL master and replicas described by
// cfg and applies migrations on the master.
func OpenPostgres(ctx context.Context, cfg config.Database) (*dbpg.DB, error) {
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Slaves))
	for _, s := range cfg.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(ctx, db.Master); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, db execer) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		if _, err := db.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}

		_, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	return nil
}
