package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps catalogs in a single local database file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := (migrator{}).upToLatest(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Fixed-width so lexical order matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func (s *SQLiteStore) CreateCatalog(ctx context.Context, c *Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	criteria, err := json.Marshal(c.Criteria)
	if err != nil {
		return err
	}
	alts, err := json.Marshal(c.Alternatives)
	if err != nil {
		return err
	}
	id := uuid.New()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalogs (id, name, description, criteria, alternatives, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), c.Name, c.Description, string(criteria), string(alts), now.Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert catalog: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (s *SQLiteStore) GetCatalog(ctx context.Context, id uuid.UUID) (*Catalog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, criteria, alternatives, created_at
		FROM catalogs WHERE id = ?`, id.String())
	c, err := scanSQLiteCatalog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *SQLiteStore) ListCatalogs(ctx context.Context, limit int) ([]*Catalog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, criteria, alternatives, created_at
		FROM catalogs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Catalog
	for rows.Next() {
		c, err := scanSQLiteCatalog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteCatalog(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM catalogs WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteCatalog(row rowScanner) (*Catalog, error) {
	var (
		c                        Catalog
		id, criteria, alts, when string
	)
	if err := row.Scan(&id, &c.Name, &c.Description, &criteria, &alts, &when); err != nil {
		return nil, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("catalog id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(criteria), &c.Criteria); err != nil {
		return nil, fmt.Errorf("decode criteria of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(alts), &c.Alternatives); err != nil {
		return nil, fmt.Errorf("decode alternatives of %s: %w", id, err)
	}
	if c.CreatedAt, err = time.Parse(sqliteTimeLayout, when); err != nil {
		return nil, fmt.Errorf("created_at of %s: %w", id, err)
	}
	return &c, nil
}
