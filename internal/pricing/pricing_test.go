package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

type stubFeeSource struct {
	fees map[string]decimal.Decimal
}

func (s *stubFeeSource) FeeForLocation(_ context.Context, location string) (decimal.Decimal, error) {
	fee, ok := s.fees[location]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnknownLocation, "no delivery fee for location")
	}
	return fee, nil
}

func newCalculator(t *testing.T) Calculator {
	t.Helper()
	calc, err := NewCalculator(&stubFeeSource{fees: map[string]decimal.Decimal{
		"Poblacion": decimal.NewFromInt(50),
		"San Roque": decimal.RequireFromString("75.50"),
	}})
	require.NoError(t, err)
	return calc
}

func items(pairs ...models.OrderItem) models.OrderItems {
	return models.OrderItems(pairs)
}

func TestComputeTotals_FivePercentDiscount(t *testing.T) {
	calc := newCalculator(t)

	totals, err := calc.ComputeTotals(context.Background(), items(
		models.OrderItem{Name: "Beef Pares", Quantity: 10, UnitPrice: decimal.NewFromInt(100)},
	), enums.DiscountTierSenior, "Poblacion")
	require.NoError(t, err)

	require.True(t, totals.Subtotal.Equal(decimal.NewFromInt(1000)), "subtotal %s", totals.Subtotal)
	require.True(t, totals.DiscountAmount.Equal(decimal.NewFromInt(50)), "discount %s", totals.DiscountAmount)
	require.True(t, totals.DeliveryFee.Equal(decimal.NewFromInt(50)), "fee %s", totals.DeliveryFee)
	// 1000.00 - 50.00 + 50.00
	require.True(t, totals.Total.Equal(decimal.NewFromInt(1000)), "total %s", totals.Total)
}

func TestComputeTotals_NoneTierSkipsDiscount(t *testing.T) {
	calc := newCalculator(t)

	totals, err := calc.ComputeTotals(context.Background(), items(
		models.OrderItem{Name: "Lugaw", Quantity: 2, UnitPrice: decimal.RequireFromString("45.00")},
	), enums.DiscountTierNone, "Poblacion")
	require.NoError(t, err)

	require.True(t, totals.DiscountAmount.IsZero())
	require.True(t, totals.Total.Equal(decimal.RequireFromString("140.00")), "total %s", totals.Total)
}

func TestComputeTotals_RoundsHalfUp(t *testing.T) {
	calc := newCalculator(t)

	// 2.50 * 0.05 = 0.125, which must round to 0.13.
	totals, err := calc.ComputeTotals(context.Background(), items(
		models.OrderItem{Name: "Sago't Gulaman", Quantity: 1, UnitPrice: decimal.RequireFromString("2.50")},
	), enums.DiscountTierPWD, "Poblacion")
	require.NoError(t, err)

	require.True(t, totals.DiscountAmount.Equal(decimal.RequireFromString("0.13")), "discount %s", totals.DiscountAmount)
}

func TestComputeTotals_Idempotent(t *testing.T) {
	calc := newCalculator(t)
	lines := items(
		models.OrderItem{Name: "Beef Pares", Quantity: 3, UnitPrice: decimal.RequireFromString("119.00")},
		models.OrderItem{Name: "Garlic Rice", Quantity: 3, UnitPrice: decimal.RequireFromString("25.00")},
	)

	first, err := calc.ComputeTotals(context.Background(), lines, enums.DiscountTierSenior, "San Roque")
	require.NoError(t, err)
	second, err := calc.ComputeTotals(context.Background(), lines, enums.DiscountTierSenior, "San Roque")
	require.NoError(t, err)

	require.True(t, first.Subtotal.Equal(second.Subtotal))
	require.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	require.True(t, first.DeliveryFee.Equal(second.DeliveryFee))
	require.True(t, first.Total.Equal(second.Total))
}

func TestComputeTotals_UnknownLocation(t *testing.T) {
	calc := newCalculator(t)

	_, err := calc.ComputeTotals(context.Background(), items(
		models.OrderItem{Name: "Lugaw", Quantity: 1, UnitPrice: decimal.NewFromInt(45)},
	), enums.DiscountTierNone, "Atlantis")
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnknownLocation, typed.Code())
}

func TestComputeTotals_ZeroedLineContributesNothing(t *testing.T) {
	calc := newCalculator(t)

	totals, err := calc.ComputeTotals(context.Background(), items(
		models.OrderItem{Name: "Beef Pares", Quantity: 0, UnitPrice: decimal.Zero},
		models.OrderItem{Name: "Garlic Rice", Quantity: 2, UnitPrice: decimal.NewFromInt(25)},
	), enums.DiscountTierNone, "Poblacion")
	require.NoError(t, err)

	require.True(t, totals.Subtotal.Equal(decimal.NewFromInt(50)), "subtotal %s", totals.Subtotal)
}
