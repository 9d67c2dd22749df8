package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var (
	ErrNotFound       = errors.New("catalog not found")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Item is one labelled alternative in a catalog.
type Item struct {
	Label  string    `json:"label"`
	Scores []float64 `json:"scores"`
}

// Catalog is a named, reusable candidate set. Criteria names are optional;
// when given there must be one per score column.
type Catalog struct {
	ID           uuid.UUID `json:"catalog_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Criteria     []string  `json:"criteria,omitempty"`
	Alternatives []Item    `json:"alternatives"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Catalog) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidCatalog)
	}
	if len(c.Alternatives) == 0 {
		return fmt.Errorf("%w: no alternatives", ErrInvalidCatalog)
	}
	set, err := c.CandidateSet()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if set.Distinct() < 2 {
		return fmt.Errorf("%w: need at least two distinct alternatives", ErrInvalidCatalog)
	}
	if len(c.Criteria) > 0 && len(c.Criteria) != len(c.Alternatives[0].Scores) {
		return fmt.Errorf("%w: %d criteria named but alternatives have %d scores",
			ErrInvalidCatalog, len(c.Criteria), len(c.Alternatives[0].Scores))
	}
	return nil
}

// CandidateSet converts the catalog's scores, in order, into a candidate set.
func (c *Catalog) CandidateSet() (*scoring.CandidateSet, error) {
	alts := make([]scoring.Alternative, len(c.Alternatives))
	for i, it := range c.Alternatives {
		alts[i] = scoring.Alternative(it.Scores)
	}
	return scoring.NewCandidateSet(alts)
}

// LabelOf returns the label of the first item scoring exactly a, or "".
func (c *Catalog) LabelOf(a scoring.Alternative) string {
	for _, it := range c.Alternatives {
		if a.Equal(it.Scores) {
			return it.Label
		}
	}
	return ""
}

// Labels maps each alternative's string form to its label.
func (c *Catalog) Labels() map[string]string {
	out := make(map[string]string, len(c.Alternatives))
	for _, it := range c.Alternatives {
		key := scoring.Alternative(it.Scores).String()
		if _, ok := out[key]; !ok {
			out[key] = it.Label
		}
	}
	return out
}

// Store persists catalogs. GetCatalog returns (nil, nil) for an unknown id;
// DeleteCatalog returns ErrNotFound.
type Store interface {
	CreateCatalog(ctx context.Context, c *Catalog) error
	GetCatalog(ctx context.Context, id uuid.UUID) (*Catalog, error)
	ListCatalogs(ctx context.Context, limit int) ([]*Catalog, error)
	DeleteCatalog(ctx context.Context, id uuid.UUID) error
	Close() error
}
