package payments

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

	"github.com/bahaypares/ordering-backend/internal/orders"
	"github.com/bahaypares/ordering-backend/pkg/bux"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

const testSecret = "test-secret"

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.Transaction(fn)
}

type secretVerifier struct{}

func (secretVerifier) VerifyCallback(cb bux.Callback) bool {
	return bux.VerifySignature(cb.ReqID, cb.Status, testSecret, cb.Signature)
}

type fakeIdemStore struct {
	keys map[string]string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{keys: map[string]string{}}
}

func (f *fakeIdemStore) Get(_ context.Context, key string) (string, error) {
	return f.keys[key], nil
}

func (f *fakeIdemStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = "1"
	return true, nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "pares:idempotency:" + scope + ":" + id
}

func (f *fakeIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

type confirmRecorder struct {
	confirmed []string
}

func (c *confirmRecorder) PaymentConfirmed(_ context.Context, order *models.Order) {
	c.confirmed = append(c.confirmed, order.OrderID)
}

func setupPaymentsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
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

type paymentsFixture struct {
	db     *gorm.DB
	repo   orders.Repository
	svc    Service
	notify *confirmRecorder
	idem   *fakeIdemStore
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()

	db := setupPaymentsDB(t)
	repo := orders.NewRepository(db)
	notify := &confirmRecorder{}
	idem := newFakeIdemStore()

	svc, err := NewService(repo, &gormTx{db: db}, secretVerifier{}, idem, notify, nil)
	require.NoError(t, err)

	return &paymentsFixture{db: db, repo: repo, svc: svc, notify: notify, idem: idem}
}

func (f *paymentsFixture) seedPending(t *testing.T, orderID string) *models.PendingOrder {
	t.Helper()
	pending := &models.PendingOrder{
		ID:         uuid.New(),
		OrderID:    orderID,
		CustomerID: uuid.New(),
		Username:   "maria",
		Location:   "Poblacion",
		Items: models.OrderItems{
			{Name: "Tapsilog", Quantity: 2, UnitPrice: decimal.RequireFromString("120.00")},
		},
		Subtotal:       decimal.RequireFromString("240.00"),
		DeliveryFee:    decimal.RequireFromString("50.00"),
		Discount:       decimal.Zero,
		Total:          decimal.RequireFromString("290.00"),
		PaymentMethod:  enums.PaymentMethodEWallet.String(),
		DeliveryStatus: "Pending",
		PlacedAt:       time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(pending).Error)
	return pending
}

func (f *paymentsFixture) count(t *testing.T, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Table(table).Count(&count).Error)
	return count
}

func signedCallback(orderID, status string) bux.Callback {
	return bux.Callback{
		ReqID:     orderID,
		ClientID:  "bp-merchant",
		Status:    status,
		Signature: bux.Sign(orderID, status, testSecret),
	}
}

func TestPaidCallbackPromotesPendingOrder(t *testing.T) {
	f := newPaymentsFixture(t)
	f.seedPending(t, "BP-1001")

	err := f.svc.HandleCallback(context.Background(), signedCallback("BP-1001", bux.StatusPaid))
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.count(t, "orders"))
	assert.EqualValues(t, 0, f.count(t, "pending_orders"))

	order, err := f.repo.FindByOrderID(context.Background(), "BP-1001")
	require.NoError(t, err)
	assert.Equal(t, "Paid Online Ref#:BP-1001", order.PaymentMethod)
	assert.Equal(t, "Pending", order.DeliveryStatus)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("290.00")))
	assert.Equal(t, []string{"BP-1001"}, f.notify.confirmed)
}

func TestForgedSignatureLeavesStateUntouched(t *testing.T) {
	f := newPaymentsFixture(t)
	f.seedPending(t, "BP-1001")

	cb := signedCallback("BP-1001", bux.StatusPaid)
	cb.Signature = "deadbeef"

	err := f.svc.HandleCallback(context.Background(), cb)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeSignatureMismatch, typed.Code())

	assert.EqualValues(t, 0, f.count(t, "orders"))
	assert.EqualValues(t, 1, f.count(t, "pending_orders"))

	pending, err := f.repo.FindPendingByOrderID(context.Background(), "BP-1001")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodEWallet.String(), pending.PaymentMethod)
	assert.Empty(t, f.notify.confirmed)
}

func TestFailedStatusAnnotatesPendingInPlace(t *testing.T) {
	f := newPaymentsFixture(t)
	f.seedPending(t, "BP-1001")

	err := f.svc.HandleCallback(context.Background(), signedCallback("BP-1001", "failed"))
	require.NoError(t, err)

	assert.EqualValues(t, 0, f.count(t, "orders"))

	pending, err := f.repo.FindPendingByOrderID(context.Background(), "BP-1001")
	require.NoError(t, err)
	assert.Equal(t, "Payment not successful", pending.PaymentMethod)
	assert.Empty(t, f.notify.confirmed)
}

func TestDuplicatePaidCallbackIsAcked(t *testing.T) {
	f := newPaymentsFixture(t)
	f.seedPending(t, "BP-1001")

	cb := signedCallback("BP-1001", bux.StatusPaid)
	require.NoError(t, f.svc.HandleCallback(context.Background(), cb))
	require.NoError(t, f.svc.HandleCallback(context.Background(), cb))

	assert.EqualValues(t, 1, f.count(t, "orders"))
	assert.Len(t, f.notify.confirmed, 1)
}

func TestRetryAfterPromotionWithoutDedupStore(t *testing.T) {
	f := newPaymentsFixture(t)
	f.seedPending(t, "BP-1001")

	svc, err := NewService(f.repo, &gormTx{db: f.db}, secretVerifier{}, nil, f.notify, nil)
	require.NoError(t, err)

	cb := signedCallback("BP-1001", bux.StatusPaid)
	require.NoError(t, svc.HandleCallback(context.Background(), cb))
	require.NoError(t, svc.HandleCallback(context.Background(), cb))

	assert.EqualValues(t, 1, f.count(t, "orders"))
}

func TestCallbackForUnknownOrder(t *testing.T) {
	f := newPaymentsFixture(t)

	err := f.svc.HandleCallback(context.Background(), signedCallback("BP-9999", "failed"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
