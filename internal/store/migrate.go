package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrator tracks the SQLite schema version in schema_migrations and
// applies each numbered step at most once.
type migrator struct{}

var sqliteMigrations = []string{
	1: `CREATE TABLE IF NOT EXISTS catalogs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		criteria TEXT NOT NULL DEFAULT 'null',
		alternatives TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	2: `ALTER TABLE catalogs ADD COLUMN description TEXT NOT NULL DEFAULT ''`,
	3: `CREATE INDEX IF NOT EXISTS idx_catalogs_created ON catalogs(created_at)`,
}

func latestVersion() int { return len(sqliteMigrations) - 1 }

func (migrator) ensureTable(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&cnt); err != nil {
		return err
	}
	if cnt == 0 {
		_, err := db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(0)`)
		return err
	}
	return nil
}

func (m migrator) version(ctx context.Context, db *sql.DB) (int, error) {
	if err := m.ensureTable(ctx, db); err != nil {
		return 0, err
	}
	var v int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v)
	return v, err
}

func (m migrator) upToLatest(ctx context.Context, db *sql.DB) error {
	cur, err := m.version(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for v := cur + 1; v <= latestVersion(); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sqliteMigrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate up to v%d: %w", v, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_migrations SET version = ?`, v); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
