package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS elicit_catalogs (
	catalog_id   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	criteria     TEXT[] NOT NULL DEFAULT '{}',
	alternatives JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_elicit_catalogs_created ON elicit_catalogs (created_at DESC);
`

// EnsureSchema creates the catalog table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const catalogColumns = `catalog_id, name, description, criteria, alternatives, created_at`

func (s *PostgresStore) CreateCatalog(ctx context.Context, c *Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	altsJSON, err := json.Marshal(c.Alternatives)
	if err != nil {
		return err
	}
	criteria := c.Criteria
	if criteria == nil {
		criteria = []string{}
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO elicit_catalogs (name, description, criteria, alternatives)
		VALUES ($1, $2, $3, $4)
		RETURNING catalog_id, created_at`,
		c.Name, c.Description, criteria, altsJSON,
	).Scan(&c.ID, &c.CreatedAt)
}

func (s *PostgresStore) GetCatalog(ctx context.Context, id uuid.UUID) (*Catalog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+catalogColumns+` FROM elicit_catalogs WHERE catalog_id = $1`, id)
	c, err := scanCatalog(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *PostgresStore) ListCatalogs(ctx context.Context, limit int) ([]*Catalog, error) {
	query := `SELECT ` + catalogColumns + ` FROM elicit_catalogs ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Catalog
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteCatalog(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM elicit_catalogs WHERE catalog_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCatalog(row pgx.Row) (*Catalog, error) {
	c := &Catalog{}
	var altsJSON []byte
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Criteria, &altsJSON, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(altsJSON, &c.Alternatives); err != nil {
		return nil, fmt.Errorf("decode alternatives of %s: %w", c.ID, err)
	}
	if len(c.Criteria) == 0 {
		c.Criteria = nil
	}
	return c, nil
}
