package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

// discountRate is the flat rate applied for any tier other than none. Tiers
// are not differentiated.
var discountRate = decimal.NewFromFloat(0.05)

// FeeSource resolves the delivery fee for a location.
type FeeSource interface {
	FeeForLocation(ctx context.Context, location string) (decimal.Decimal, error)
}

// Totals is the checkout price breakdown.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	Total          decimal.Decimal `json:"total"`
}

// Calculator computes checkout totals. It holds no persisted state of its
// own; repeated calls with identical inputs yield identical results.
type Calculator interface {
	ComputeTotals(ctx context.Context, items models.OrderItems, tier enums.DiscountTier, location string) (Totals, error)
}

type calculator struct {
	fees FeeSource
}

// NewCalculator builds a Calculator over the given fee source.
func NewCalculator(fees FeeSource) (Calculator, error) {
	if fees == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fee source required")
	}
	return &calculator{fees: fees}, nil
}

func (c *calculator) ComputeTotals(ctx context.Context, items models.OrderItems, tier enums.DiscountTier, location string) (Totals, error) {
	fee, err := c.fees.FeeForLocation(ctx, location)
	if err != nil {
		return Totals{}, err
	}

	subtotal := items.Subtotal()
	discount := DiscountFor(subtotal, tier)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		DeliveryFee:    fee,
		Total:          subtotal.Sub(discount).Add(fee),
	}, nil
}

// DiscountFor returns the discount amount for the subtotal: zero for the
// none tier, otherwise the flat rate rounded half-up to two decimal places.
func DiscountFor(subtotal decimal.Decimal, tier enums.DiscountTier) decimal.Decimal {
	if tier.IsNone() {
		return decimal.Zero
	}
	return subtotal.Mul(discountRate).Round(2)
}
