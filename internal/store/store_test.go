package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

func exampleCatalog() *Catalog {
	return &Catalog{
		Name:     "laptops",
		Criteria: []string{"performance", "battery"},
		Alternatives: []Item{
			{Label: "a", Scores: []float64{0.5, 0.2}},
			{Label: "b", Scores: []float64{0.7, 0.1}},
			{Label: "c", Scores: []float64{0.6, 0.3}},
		},
	}
}

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "catalogs.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLite(t),
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := exampleCatalog()
			if err := s.CreateCatalog(ctx, c); err != nil {
				t.Fatalf("CreateCatalog: %v", err)
			}
			if c.ID == uuid.Nil {
				t.Fatal("expected id to be assigned")
			}
			if c.CreatedAt.IsZero() {
				t.Fatal("expected created_at to be set")
			}

			got, err := s.GetCatalog(ctx, c.ID)
			if err != nil {
				t.Fatalf("GetCatalog: %v", err)
			}
			if got == nil {
				t.Fatal("expected catalog")
			}
			if got.Name != "laptops" || len(got.Alternatives) != 3 {
				t.Errorf("unexpected catalog %+v", got)
			}
			if got.Alternatives[1].Label != "b" || got.Alternatives[1].Scores[0] != 0.7 {
				t.Errorf("unexpected second item %+v", got.Alternatives[1])
			}
			if len(got.Criteria) != 2 || got.Criteria[1] != "battery" {
				t.Errorf("unexpected criteria %v", got.Criteria)
			}
			if !got.CreatedAt.Equal(c.CreatedAt) {
				t.Errorf("created_at %v != %v", got.CreatedAt, c.CreatedAt)
			}
		})
	}
}

func TestGetMissingCatalog(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.GetCatalog(context.Background(), uuid.New())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})
	}
}

func TestListCatalogsNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var ids []uuid.UUID
			for _, n := range []string{"one", "two", "three"} {
				c := exampleCatalog()
				c.Name = n
				if err := s.CreateCatalog(ctx, c); err != nil {
					t.Fatal(err)
				}
				ids = append(ids, c.ID)
			}

			all, err := s.ListCatalogs(ctx, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3, got %d", len(all))
			}
			if all[0].ID != ids[2] || all[2].ID != ids[0] {
				t.Errorf("expected newest first, got %s %s %s", all[0].Name, all[1].Name, all[2].Name)
			}

			two, err := s.ListCatalogs(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(two) != 2 {
				t.Errorf("expected limit 2, got %d", len(two))
			}
		})
	}
}

func TestDeleteCatalog(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := exampleCatalog()
			if err := s.CreateCatalog(ctx, c); err != nil {
				t.Fatal(err)
			}
			if err := s.DeleteCatalog(ctx, c.ID); err != nil {
				t.Fatalf("DeleteCatalog: %v", err)
			}
			got, _ := s.GetCatalog(ctx, c.ID)
			if got != nil {
				t.Error("expected catalog to be gone")
			}
			if err := s.DeleteCatalog(ctx, c.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCreateRejectsInvalidCatalog(t *testing.T) {
	ctx := context.Background()
	cases := map[string]func(*Catalog){
		"no name":         func(c *Catalog) { c.Name = "" },
		"no alternatives": func(c *Catalog) { c.Alternatives = nil },
		"ragged": func(c *Catalog) {
			c.Alternatives = append(c.Alternatives, Item{Label: "d", Scores: []float64{1}})
		},
		"criteria count":     func(c *Catalog) { c.Criteria = []string{"only-one"} },
		"single alternative": func(c *Catalog) { c.Alternatives = c.Alternatives[:1] },
		"identical scores": func(c *Catalog) {
			for i := range c.Alternatives {
				c.Alternatives[i].Scores = []float64{0.5, 0.5}
			}
		},
	}
	for name, s := range backends(t) {
		for cname, mutate := range cases {
			t.Run(name+"/"+cname, func(t *testing.T) {
				c := exampleCatalog()
				mutate(c)
				if err := s.CreateCatalog(ctx, c); !errors.Is(err, ErrInvalidCatalog) {
					t.Errorf("expected ErrInvalidCatalog, got %v", err)
				}
			})
		}
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := exampleCatalog()
	if err := s.CreateCatalog(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.Alternatives[0].Scores[0] = 42

	got, _ := s.GetCatalog(ctx, c.ID)
	if got.Alternatives[0].Scores[0] != 0.5 {
		t.Error("store aliases caller data")
	}
	got.Name = "changed"
	again, _ := s.GetCatalog(ctx, c.ID)
	if again.Name != "laptops" {
		t.Error("store returned shared pointer")
	}
}

func TestCatalogCandidateSetAndLabels(t *testing.T) {
	c := exampleCatalog()
	set, err := c.CandidateSet()
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 3 || set.Dim() != 2 {
		t.Errorf("got len %d dim %d", set.Len(), set.Dim())
	}
	if l := c.LabelOf(scoring.Alternative{0.7, 0.1}); l != "b" {
		t.Errorf("expected label b, got %q", l)
	}
	if l := c.LabelOf(scoring.Alternative{1, 1}); l != "" {
		t.Errorf("expected empty label, got %q", l)
	}
	if c.Labels()["[0.6 0.3]"] != "c" {
		t.Errorf("unexpected labels %v", c.Labels())
	}
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalogs.db")

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	c := exampleCatalog()
	if err := s.CreateCatalog(ctx, c); err != nil {
		t.Fatal(err)
	}
	v, err := (migrator{}).version(ctx, s.db)
	if err != nil {
		t.Fatal(err)
	}
	if v != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), v)
	}
	s.Close()

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GetCatalog(ctx, c.ID)
	if err != nil || got == nil {
		t.Fatalf("catalog lost across reopen: %v", err)
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(context.Background(), ""); err == nil {
		t.Error("expected error for empty path")
	}
}
