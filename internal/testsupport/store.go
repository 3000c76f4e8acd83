package testsupport

import (
	"context"
	"testing"

	"shelfmark/internal/catalog"
	"shelfmark/internal/config"
	"shelfmark/internal/database"
	"shelfmark/internal/logging"
)

// MustOpenDB opens the store with only the queue schema, the way a deployment
// without the catalog owner looks.
func MustOpenDB(t testing.TB, cfg *config.Config) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustOpenCatalogDB opens the store and bootstraps the catalog tables.
func MustOpenCatalogDB(t testing.TB, cfg *config.Config) *database.DB {
	t.Helper()

	db := MustOpenDB(t, cfg)
	if err := db.EnsureCatalogSchema(context.Background()); err != nil {
		t.Fatalf("EnsureCatalogSchema: %v", err)
	}
	return db
}

// NewCatalog wires a catalog store with the config's matching thresholds.
func NewCatalog(t testing.TB, db *database.DB, cfg *config.Config) *catalog.Store {
	t.Helper()
	return catalog.New(db, cfg.Matching, logging.NewNop())
}

// SeedBook inserts (or resolves) a catalog row.
func SeedBook(t testing.TB, store *catalog.Store, title, author string, year *int) *catalog.Book {
	t.Helper()

	res, err := store.Ensure(context.Background(), title, author, catalog.Extra{Year: year})
	if err != nil {
		t.Fatalf("Ensure(%q, %q): %v", title, author, err)
	}
	return res.Book
}

// SeedOwned inserts a catalog row and links it to userID.
func SeedOwned(t testing.TB, store *catalog.Store, userID int64, title, author string, year *int) *catalog.Book {
	t.Helper()

	book := SeedBook(t, store, title, author, year)
	if _, err := store.Link(context.Background(), userID, book.ID); err != nil {
		t.Fatalf("Link(%d, %d): %v", userID, book.ID, err)
	}
	return book
}

// Year returns a pointer to year.
func Year(year int) *int {
	return &year
}
