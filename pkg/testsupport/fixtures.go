// Package testsupport provides shared database fixtures for package
// tests: an in-memory sqlite store opened through bun and a small set of
// household entities with known contents.
package testsupport

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

// ShoppingItem is the fixture entity used across repository, criteria and
// unit-of-work tests. Integer primary key so generated-identity behavior
// is observable.
type ShoppingItem struct {
	bun.BaseModel `bun:"table:shopping_items"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"name"`
	Active   bool   `bun:"active"`
	Quantity int    `bun:"quantity"`
}

// Recipe is a secondary fixture entity with a caller-assigned uuid key.
type Recipe struct {
	bun.BaseModel `bun:"table:recipes"`

	ID       string `bun:"id,pk"`
	Title    string `bun:"title"`
	Servings int    `bun:"servings"`
}

// NewRecipe builds a recipe with a fresh uuid identity.
func NewRecipe(title string, servings int) *Recipe {
	return &Recipe{ID: uuid.NewString(), Title: title, Servings: servings}
}

// OpenDB opens a private in-memory sqlite database for one test and
// registers its teardown. The pool is pinned to a single connection so the
// memory database survives for the duration of the test.
func OpenDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close sqlite: %v", err)
		}
	})
	return db
}

// CreateSchema creates tables for the given models, failing the test on
// error.
func CreateSchema(t *testing.T, db *bun.DB, models ...any) {
	t.Helper()

	ctx := context.Background()
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("failed to create table for %T: %v", model, err)
		}
	}
}

// SeedShoppingItems creates the shopping_items table and inserts the
// canonical five-row fixture. Exactly two rows are active AND contain
// "apple" in the name; three rows are active; two contain "apple" but one
// of those is inactive.
func SeedShoppingItems(t *testing.T, db *bun.DB) []*ShoppingItem {
	t.Helper()

	CreateSchema(t, db, (*ShoppingItem)(nil))

	items := []*ShoppingItem{
		{ID: 1, Name: "apple sauce", Active: true, Quantity: 2},
		{ID: 2, Name: "green apples", Active: true, Quantity: 6},
		{ID: 3, Name: "apple cider", Active: false, Quantity: 1},
		{ID: 4, Name: "bananas", Active: true, Quantity: 5},
		{ID: 5, Name: "flour", Active: false, Quantity: 3},
	}
	ctx := context.Background()
	if _, err := db.NewInsert().Model(&items).Exec(ctx); err != nil {
		t.Fatalf("failed to seed shopping items: %v", err)
	}
	return items
}
