package reports

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

type orderSource interface {
	ListPlacedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error)
}

// Row is one line item of a terminal order, flattened for tabular reporting.
type Row struct {
	OrderID        string          `json:"order_id"`
	Username       string          `json:"username"`
	Location       string          `json:"location"`
	ItemName       string          `json:"item_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	PaymentMethod  string          `json:"payment_method"`
	DeliveryStatus string          `json:"delivery_status"`
	PlacedAt       time.Time       `json:"placed_at"`
}

// Report is the rows for a window plus summary figures.
type Report struct {
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	Rows   []Row           `json:"rows"`
	Orders int             `json:"orders"`
	Gross  decimal.Decimal `json:"gross"`
}

// Service produces read-only reports over finalized orders.
type Service interface {
	OrdersInRange(ctx context.Context, start, end time.Time) (*Report, error)
	Daily(ctx context.Context, day time.Time) (*Report, error)
	Weekly(ctx context.Context, ref time.Time) (*Report, error)
	Monthly(ctx context.Context, ref time.Time) (*Report, error)
	Yearly(ctx context.Context, ref time.Time) (*Report, error)
}

type service struct {
	source orderSource
}

// NewService wires the reporting aggregator.
func NewService(source orderSource) (Service, error) {
	if source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order source required")
	}
	return &service{source: source}, nil
}

// OrdersInRange flattens terminal orders placed in [start, end) to one row
// per line item. Matching on the status prefix is case-insensitive so legacy
// records with mixed casing still report.
func (s *service) OrdersInRange(ctx context.Context, start, end time.Time) (*Report, error) {
	if !end.After(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}

	orders, err := s.source.ListPlacedBetween(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders for report")
	}

	report := &Report{Start: start, End: end, Gross: decimal.Zero}
	for _, order := range orders {
		if !reportable(order.DeliveryStatus) {
			continue
		}
		report.Orders++
		report.Gross = report.Gross.Add(order.Total)
		for _, item := range order.Items {
			if item.Quantity == 0 && item.UnitPrice.IsZero() {
				continue
			}
			report.Rows = append(report.Rows, Row{
				OrderID:        order.OrderID,
				Username:       order.Username,
				Location:       order.Location,
				ItemName:       item.Name,
				Quantity:       item.Quantity,
				UnitPrice:      item.UnitPrice,
				LineTotal:      item.LineTotal(),
				OrderTotal:     order.Total,
				PaymentMethod:  order.PaymentMethod,
				DeliveryStatus: order.DeliveryStatus,
				PlacedAt:       order.PlacedAt,
			})
		}
	}
	return report, nil
}

func (s *service) Daily(ctx context.Context, day time.Time) (*Report, error) {
	start := truncateToDay(day)
	return s.OrdersInRange(ctx, start, start.AddDate(0, 0, 1))
}

// Weekly reports the Monday-to-Monday week containing ref.
func (s *service) Weekly(ctx context.Context, ref time.Time) (*Report, error) {
	start := truncateToDay(ref)
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return s.OrdersInRange(ctx, start, start.AddDate(0, 0, 7))
}

func (s *service) Monthly(ctx context.Context, ref time.Time) (*Report, error) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return s.OrdersInRange(ctx, start, start.AddDate(0, 1, 0))
}

func (s *service) Yearly(ctx context.Context, ref time.Time) (*Report, error) {
	start := time.Date(ref.Year(), 1, 1, 0, 0, 0, 0, ref.Location())
	return s.OrdersInRange(ctx, start, start.AddDate(1, 0, 0))
}

func reportable(status string) bool {
	lowered := strings.ToLower(strings.TrimSpace(status))
	return strings.HasPrefix(lowered, "delivered") || strings.HasPrefix(lowered, "cancelled")
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
