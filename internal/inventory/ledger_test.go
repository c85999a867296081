package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	menuItems := `
CREATE TABLE IF NOT EXISTS menu_items (
  id TEXT PRIMARY KEY,
  category TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  unit_price TEXT NOT NULL,
  sale_price TEXT,
  available INTEGER NOT NULL DEFAULT 1,
  tag TEXT NOT NULL DEFAULT 'normal',
  stock_qty INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(menuItems).Error; err != nil {
		t.Fatalf("create menu_items: %v", err)
	}
	return db
}

func seedItem(t *testing.T, db *gorm.DB, name string, stock int) {
	t.Helper()
	item := models.MenuItem{
		ID:        uuid.New(),
		Category:  "Mains",
		Name:      name,
		UnitPrice: decimal.NewFromInt(100),
		Available: true,
		StockQty:  stock,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func stockOf(t *testing.T, db *gorm.DB, name string) int {
	t.Helper()
	var item models.MenuItem
	if err := db.First(&item, "name = ?", name).Error; err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return item.StockQty
}

func TestReserve_DecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	seedItem(t, db, "Beef Pares", 5)

	if err := Reserve(ctx, db, "Beef Pares", 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := stockOf(t, db, "Beef Pares"); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}
}

func TestReserve_RejectsInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	seedItem(t, db, "Lugaw", 2)

	err := Reserve(ctx, db, "Lugaw", 3)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	// Failed reservation must not mutate.
	if got := stockOf(t, db, "Lugaw"); got != 2 {
		t.Fatalf("expected stock unchanged at 2, got %d", got)
	}
}

func TestReserve_UnknownItem(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	err := Reserve(context.Background(), db, "Adobo", 1)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserve_InvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedItem(t, db, "Lugaw", 2)

	err := Reserve(context.Background(), db, "Lugaw", 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseThenReserve_RoundTrips(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	seedItem(t, db, "Beef Pares", 4)

	if err := Release(ctx, db, "Beef Pares", 2); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := Reserve(ctx, db, "Beef Pares", 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := stockOf(t, db, "Beef Pares"); got != 4 {
		t.Fatalf("expected stock back at 4, got %d", got)
	}
}

func TestReserveAll_RollsBackInsideTransaction(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	seedItem(t, db, "Beef Pares", 5)
	seedItem(t, db, "Garlic Rice", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveAll(ctx, tx, []Reservation{
			{Name: "Beef Pares", Qty: 2},
			{Name: "Garlic Rice", Qty: 3},
		})
	})
	if err == nil {
		t.Fatal("expected reservation failure")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	// The enclosing transaction rolled back the first decrement too.
	if got := stockOf(t, db, "Beef Pares"); got != 5 {
		t.Fatalf("expected beef stock restored to 5, got %d", got)
	}
	if got := stockOf(t, db, "Garlic Rice"); got != 1 {
		t.Fatalf("expected rice stock untouched at 1, got %d", got)
	}
}

func TestReleaseAll_SkipsUnknownItems(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	seedItem(t, db, "Beef Pares", 1)

	err := ReleaseAll(ctx, db, []Reservation{
		{Name: "Retired Dish", Qty: 2},
		{Name: "Beef Pares", Qty: 2},
	})
	if err != nil {
		t.Fatalf("release all: %v", err)
	}
	if got := stockOf(t, db, "Beef Pares"); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}
}

func TestReservationsForItems_SkipsZeroedLines(t *testing.T) {
	t.Parallel()

	got := ReservationsForItems(models.OrderItems{
		{Name: "Beef Pares", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
		{Name: "Cancelled Line", Quantity: 0, UnitPrice: decimal.Zero},
	})
	if len(got) != 1 || got[0].Name != "Beef Pares" || got[0].Qty != 2 {
		t.Fatalf("unexpected reservations: %+v", got)
	}
}
