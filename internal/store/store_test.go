package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/aisle/internal/database"
	"github.com/dukerupert/aisle/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedCatalog creates a produce and a bakery location with two products.
func seedCatalog(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	ls := NewLocationStore(db)
	ps := NewProductStore(db)

	for _, l := range []model.StoreLocation{
		{ID: "produce", Name: "Produce", SequenceNumber: 1},
		{ID: "bakery", Name: "Bakery", SequenceNumber: 2},
	} {
		if err := ls.CreateLocation(ctx, &l); err != nil {
			t.Fatalf("create location %s: %v", l.ID, err)
		}
	}
	for _, p := range []model.Product{
		{ID: "apple", Name: "Apple", Aliases: []string{"pomme"}, StoreLocationID: "produce", ShelfHeight: model.ShelfMiddle, SequenceNumber: 10, DefaultQuantity: 1},
		{ID: "bread", Name: "Sourdough", Aliases: []string{"loaf", "100%_rye"}, StoreLocationID: "bakery", ShelfHeight: model.ShelfTop, SequenceNumber: 10, DefaultQuantity: 2},
	} {
		if err := ps.CreateProduct(ctx, &p); err != nil {
			t.Fatalf("create product %s: %v", p.ID, err)
		}
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}
