package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/internal/cart"
	"github.com/bahaypares/ordering-backend/internal/orders"
	"github.com/bahaypares/ordering-backend/internal/pricing"
	"github.com/bahaypares/ordering-backend/pkg/bux"
	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.Transaction(fn)
}

type stubUsers struct {
	user *models.User
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.user
	return &copied, nil
}

type stubGateway struct {
	redirect string
	err      error
	requests []bux.CheckoutRequest
	hook     func()
}

func (s *stubGateway) ClientID() string           { return "bp-merchant" }
func (s *stubGateway) NotificationURL() string    { return "https://pares.example/webhooks/payment" }
func (s *stubGateway) RedirectURL() string        { return "https://pares.example/thank-you" }
func (s *stubGateway) EnabledChannels() []string  { return []string{"gcash"} }
func (s *stubGateway) CheckoutExpirySeconds() int { return 3600 }

func (s *stubGateway) OpenCheckout(_ context.Context, req bux.CheckoutRequest) (string, error) {
	s.requests = append(s.requests, req)
	if s.hook != nil {
		s.hook()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.redirect, nil
}

type placedRecorder struct {
	placed []string
}

func (p *placedRecorder) OrderPlaced(_ context.Context, order *models.Order) {
	p.placed = append(p.placed, order.OrderID)
}

type fixedFees struct {
	fees map[string]decimal.Decimal
}

func (f *fixedFees) FeeForLocation(_ context.Context, location string) (decimal.Decimal, error) {
	fee, ok := f.fees[location]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnknownLocation, "unknown delivery location")
	}
	return fee, nil
}

func setupCheckoutDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS menu_items (
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
);`,
		`CREATE TABLE IF NOT EXISTS draft_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL UNIQUE,
  items TEXT,
  discount_amount TEXT NOT NULL DEFAULT '0',
  discount_applied INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  username TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL,
  items TEXT,
  discount_tier TEXT NOT NULL DEFAULT 'none',
  discount_card TEXT NOT NULL DEFAULT '',
  discount_card_id TEXT NOT NULL DEFAULT '',
  subtotal TEXT NOT NULL,
  delivery_fee TEXT NOT NULL,
  discount TEXT NOT NULL DEFAULT '0',
  total TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  delivery_status TEXT NOT NULL DEFAULT 'Pending',
  instruction TEXT NOT NULL DEFAULT '',
  placed_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS pending_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  username TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL,
  items TEXT,
  discount_tier TEXT NOT NULL DEFAULT 'none',
  discount_card TEXT NOT NULL DEFAULT '',
  discount_card_id TEXT NOT NULL DEFAULT '',
  subtotal TEXT NOT NULL,
  delivery_fee TEXT NOT NULL,
  discount TEXT NOT NULL DEFAULT '0',
  total TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  delivery_status TEXT NOT NULL DEFAULT 'Pending',
  instruction TEXT NOT NULL DEFAULT '',
  placed_at DATETIME NOT NULL,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

type checkoutFixture struct {
	db      *gorm.DB
	svc     Service
	gateway *stubGateway
	notify  *placedRecorder
	user    *models.User
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupCheckoutDB(t)
	user := &models.User{
		ID:       uuid.New(),
		Username: "maria",
		Email:    "maria@example.com",
		Phone:    "09171234567",
		Role:     enums.RoleCustomer,
	}

	calc, err := pricing.NewCalculator(&fixedFees{fees: map[string]decimal.Decimal{
		"Poblacion": decimal.RequireFromString("50.00"),
	}})
	require.NoError(t, err)

	gateway := &stubGateway{redirect: "https://gateway.example/session/abc"}
	notify := &placedRecorder{}

	svc, err := NewService(
		&gormTx{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		calc,
		&stubUsers{user: user},
		gateway,
		notify,
		config.OrdersConfig{PendingTTL: 24 * time.Hour},
	)
	require.NoError(t, err)

	return &checkoutFixture{db: db, svc: svc, gateway: gateway, notify: notify, user: user}
}

func (f *checkoutFixture) seedMenuItem(t *testing.T, name, price string, stock int) {
	t.Helper()
	item := models.MenuItem{
		ID:        uuid.New(),
		Category:  "Mains",
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Available: true,
		StockQty:  stock,
	}
	require.NoError(t, f.db.Create(&item).Error)
}

func (f *checkoutFixture) seedDraft(t *testing.T, orderID string, items models.OrderItems) {
	t.Helper()
	draft := models.DraftOrder{
		ID:         uuid.New(),
		OrderID:    orderID,
		CustomerID: f.user.ID,
		Items:      items,
	}
	require.NoError(t, f.db.Create(&draft).Error)
}

func (f *checkoutFixture) stockOf(t *testing.T, name string) int {
	t.Helper()
	var stock int
	require.NoError(t, f.db.Raw("SELECT stock_qty FROM menu_items WHERE name = ?", name).Scan(&stock).Error)
	return stock
}

func (f *checkoutFixture) count(t *testing.T, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Table(table).Count(&count).Error)
	return count
}

func TestCheckoutCashOnDelivery(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedMenuItem(t, "Tapsilog", "120.00", 10)
	f.seedDraft(t, "BP-1001", models.OrderItems{
		{Name: "Tapsilog", Quantity: 2, UnitPrice: decimal.RequireFromString("120.00")},
	})

	result, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Poblacion",
		PaymentMethod: "Cash on Delivery",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.Nil(t, result.Pending)
	assert.Empty(t, result.RedirectURL)

	assert.Equal(t, "Pending", result.Order.DeliveryStatus)
	assert.True(t, result.Order.Subtotal.Equal(decimal.RequireFromString("240.00")))
	assert.True(t, result.Order.Total.Equal(decimal.RequireFromString("290.00")))
	assert.Equal(t, "maria", result.Order.Username)

	assert.EqualValues(t, 1, f.count(t, "orders"))
	assert.EqualValues(t, 0, f.count(t, "pending_orders"))
	assert.EqualValues(t, 0, f.count(t, "draft_orders"))
	assert.Equal(t, 8, f.stockOf(t, "Tapsilog"))
	assert.Equal(t, []string{"BP-1001"}, f.notify.placed)
}

func TestCheckoutEWalletStagesPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedMenuItem(t, "Tapsilog", "120.00", 10)
	f.seedDraft(t, "BP-1001", models.OrderItems{
		{Name: "Tapsilog", Quantity: 1, UnitPrice: decimal.RequireFromString("120.00")},
	})

	result, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Poblacion",
		DiscountTier:  enums.DiscountTierSenior,
		PaymentMethod: "E-Wallet",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Pending)
	assert.Nil(t, result.Order)
	assert.Equal(t, "https://gateway.example/session/abc", result.RedirectURL)

	assert.EqualValues(t, 0, f.count(t, "orders"))
	assert.EqualValues(t, 1, f.count(t, "pending_orders"))
	assert.EqualValues(t, 0, f.count(t, "draft_orders"))
	assert.Equal(t, 9, f.stockOf(t, "Tapsilog"))

	// 120.00 - 5% (6.00) + 50.00 fee = 164.00
	assert.True(t, result.Pending.Total.Equal(decimal.RequireFromString("164.00")))
	assert.Equal(t, enums.PaymentMethodEWallet.String(), result.Pending.PaymentMethod)
	require.NotNil(t, result.Pending.ExpiresAt)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, "BP-1001", req.ReqID)
	assert.Equal(t, "bp-merchant", req.ClientID)
	assert.True(t, req.Amount.Equal(result.Pending.Total))
	assert.Empty(t, f.notify.placed)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedMenuItem(t, "Tapsilog", "120.00", 10)
	f.seedMenuItem(t, "Bulalo", "350.00", 1)
	f.seedDraft(t, "BP-1001", models.OrderItems{
		{Name: "Tapsilog", Quantity: 2, UnitPrice: decimal.RequireFromString("120.00")},
		{Name: "Bulalo", Quantity: 3, UnitPrice: decimal.RequireFromString("350.00")},
	})

	_, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Poblacion",
		PaymentMethod: "Cash on Delivery",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	assert.Equal(t, 10, f.stockOf(t, "Tapsilog"))
	assert.Equal(t, 1, f.stockOf(t, "Bulalo"))
	assert.EqualValues(t, 0, f.count(t, "orders"))
	assert.EqualValues(t, 1, f.count(t, "draft_orders"))
}

func TestCheckoutCommitsReservationBeforeGatewayCall(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedMenuItem(t, "Tapsilog", "120.00", 10)
	f.seedDraft(t, "BP-1001", models.OrderItems{
		{Name: "Tapsilog", Quantity: 2, UnitPrice: decimal.RequireFromString("120.00")},
	})

	var pendingDuringCall int64
	var stockDuringCall int
	f.gateway.hook = func() {
		pendingDuringCall = f.count(t, "pending_orders")
		stockDuringCall = f.stockOf(t, "Tapsilog")
	}

	result, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Poblacion",
		PaymentMethod: "E-Wallet",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Pending)

	// The reservation transaction is committed before the gateway is
	// contacted, so no row locks are held across the HTTP call.
	assert.EqualValues(t, 1, pendingDuringCall)
	assert.Equal(t, 8, stockDuringCall)
	assert.EqualValues(t, 0, f.count(t, "draft_orders"))
}

func TestCheckoutGatewayFailureRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	f.gateway.err = context.DeadlineExceeded
	f.seedMenuItem(t, "Tapsilog", "120.00", 10)
	f.seedDraft(t, "BP-1001", models.OrderItems{
		{Name: "Tapsilog", Quantity: 1, UnitPrice: decimal.RequireFromString("120.00")},
	})

	_, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Poblacion",
		PaymentMethod: "E-Wallet",
	})
	require.Error(t, err)

	assert.EqualValues(t, 0, f.count(t, "pending_orders"))
	assert.EqualValues(t, 1, f.count(t, "draft_orders"))
	assert.Equal(t, 10, f.stockOf(t, "Tapsilog"))
}

func TestCheckoutUnknownLocation(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedMenuItem(t, "Tapsilog", "120.00", 10)
	f.seedDraft(t, "BP-1001", models.OrderItems{
		{Name: "Tapsilog", Quantity: 1, UnitPrice: decimal.RequireFromString("120.00")},
	})

	_, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Atlantis",
		PaymentMethod: "Cash on Delivery",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnknownLocation, typed.Code())
}

func TestCheckoutInvalidPaymentMethod(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Poblacion",
		PaymentMethod: "Barter",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckoutWithoutDraft(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.Execute(context.Background(), f.user.ID, Input{
		Location:      "Poblacion",
		PaymentMethod: "Cash on Delivery",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
