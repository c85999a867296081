package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

// Reservation is a single stock claim keyed by menu item name.
type Reservation struct {
	Name string
	Qty  int
}

// Reserve decrements stock for one menu item if and only if enough remains.
// The guard lives in the WHERE clause so concurrent reservations cannot both
// read a stale quantity and drive stock negative.
func Reserve(ctx context.Context, tx *gorm.DB, name string, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reserve qty %d", qty))
	}

	result := tx.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("name = ? AND stock_qty >= ?", name, qty).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "reserve stock")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// The guarded update matched nothing: either the item is unknown or the
	// remaining stock is short. Distinguish for the caller.
	var count int64
	if err := tx.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check item existence")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found").
			WithDetails(map[string]string{"name": name})
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{"name": name, "requested": qty})
}

// Release increments stock back unconditionally, reversing an abandoned or
// cancelled reservation.
func Release(ctx context.Context, tx *gorm.DB, name string, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid release qty %d", qty))
	}

	result := tx.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("name = ?", name).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", qty))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "release stock")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found").
			WithDetails(map[string]string{"name": name})
	}
	return nil
}

// ReserveAll claims stock for every reservation or none of them. The first
// failure aborts and the returned error carries the failing item; the caller's
// enclosing transaction rolls back any earlier decrements.
func ReserveAll(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	for _, r := range reservations {
		if err := Reserve(ctx, tx, r.Name, r.Qty); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseAll returns stock for every reservation. Unknown items are skipped
// rather than failing the sweep; a deleted menu item should not wedge the
// release of the rest.
func ReleaseAll(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	for _, r := range reservations {
		if r.Qty <= 0 {
			continue
		}
		if err := Release(ctx, tx, r.Name, r.Qty); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				continue
			}
			return err
		}
	}
	return nil
}

// ReservationsForItems maps order line items onto stock reservations,
// skipping zeroed lines.
func ReservationsForItems(items models.OrderItems) []Reservation {
	out := make([]Reservation, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		out = append(out, Reservation{Name: item.Name, Qty: item.Quantity})
	}
	return out
}
