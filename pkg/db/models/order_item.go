package models

import "github.com/shopspring/decimal"

// OrderItem is a line item snapshot taken when the item entered the cart.
// The unit price is frozen at add time so later menu price changes do not
// alter an in-progress or recorded order. A cancelled line keeps its slot
// with quantity and price zeroed so line indexes stay stable.
type OrderItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity times unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderItems is the ordered list of line items, stored as a jsonb document.
type OrderItems []OrderItem

// Subtotal sums the line totals.
func (items OrderItems) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
