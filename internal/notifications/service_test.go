package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
	"github.com/bahaypares/ordering-backend/pkg/logger"
	"github.com/bahaypares/ordering-backend/pkg/mail"
)

func setupNotificationsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.Exec(`
		CREATE TABLE notifications (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			order_id TEXT NOT NULL DEFAULT '',
			read_at DATETIME,
			created_at DATETIME
		)`).Error)
	return gdb
}

func seedNotification(t *testing.T, repo Repository, customerID uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	row := models.Notification{
		CustomerID: customerID,
		Type:       enums.NotificationTypeOrderPlaced,
		Title:      "Order received",
		Message:    "We received your order.",
		OrderID:    "BP-9001",
		CreatedAt:  createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), &row))
	return row
}

func TestListPaginatesNewestFirst(t *testing.T) {
	gdb := setupNotificationsDB(t)
	repo := NewRepository(gdb)
	svc, err := NewService(repo)
	require.NoError(t, err)

	customerID := uuid.New()
	base := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedNotification(t, repo, customerID, base.Add(time.Duration(i)*time.Minute))
	}
	seedNotification(t, repo, uuid.New(), base)

	first, err := svc.List(context.Background(), ListParams{CustomerID: customerID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)
	require.True(t, first.Items[0].CreatedAt.After(first.Items[1].CreatedAt))

	second, err := svc.List(context.Background(), ListParams{CustomerID: customerID, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.Cursor)
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, err := NewService(NewRepository(setupNotificationsDB(t)))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{CustomerID: uuid.New(), Cursor: "not-a-cursor"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestMarkReadScopesToCustomer(t *testing.T) {
	gdb := setupNotificationsDB(t)
	repo := NewRepository(gdb)
	svc, err := NewService(repo)
	require.NoError(t, err)

	customerID := uuid.New()
	row := seedNotification(t, repo, customerID, time.Now().UTC())

	err = svc.MarkRead(context.Background(), uuid.New(), row.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	require.NoError(t, svc.MarkRead(context.Background(), customerID, row.ID))

	// Marking an already read notification is still found, just not updated.
	require.NoError(t, svc.MarkRead(context.Background(), customerID, row.ID))

	unread, err := svc.List(context.Background(), ListParams{CustomerID: customerID, UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, unread.Items)
}

func TestMarkAllRead(t *testing.T) {
	gdb := setupNotificationsDB(t)
	repo := NewRepository(gdb)
	svc, err := NewService(repo)
	require.NoError(t, err)

	customerID := uuid.New()
	seedNotification(t, repo, customerID, time.Now().UTC())
	seedNotification(t, repo, customerID, time.Now().UTC())

	count, err := svc.MarkAllRead(context.Background(), customerID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	count, err = svc.MarkAllRead(context.Background(), customerID)
	require.NoError(t, err)
	require.Zero(t, count)
}

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func publisherOrder() *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		OrderID:        "BP-9100",
		CustomerID:     uuid.New(),
		Username:       "maria",
		Email:          "maria@example.com",
		Location:       "Poblacion",
		Total:          decimal.NewFromInt(640),
		DeliveryStatus: "Pending",
		PlacedAt:       time.Now().UTC(),
	}
}

func TestPublisherRecordsAndMails(t *testing.T) {
	gdb := setupNotificationsDB(t)
	repo := NewRepository(gdb)
	mailer := &recordingMailer{}
	pub, err := NewPublisher(repo, mailer, testLogger())
	require.NoError(t, err)

	order := publisherOrder()
	pub.OrderPlaced(context.Background(), order)
	pub.OutForDelivery(context.Background(), order)
	pub.OrderCancelled(context.Background(), order, "changed my mind")

	var rows []models.Notification
	require.NoError(t, gdb.Where("customer_id = ?", order.CustomerID).Order("created_at").Find(&rows).Error)
	require.Len(t, rows, 3)

	require.Len(t, mailer.sent, 3)
	require.Equal(t, "maria@example.com", mailer.sent[0].To)
	require.Equal(t, "Bahay Pares: Order received", mailer.sent[0].Subject)
	require.Contains(t, mailer.sent[2].HTMLBody, "changed my mind")
}

func TestPublisherSurvivesMailerFailure(t *testing.T) {
	gdb := setupNotificationsDB(t)
	repo := NewRepository(gdb)
	mailer := &recordingMailer{err: errors.New("smtp down")}
	pub, err := NewPublisher(repo, mailer, testLogger())
	require.NoError(t, err)

	order := publisherOrder()
	pub.PaymentConfirmed(context.Background(), order)

	var count int64
	require.NoError(t, gdb.Model(&models.Notification{}).Where("customer_id = ?", order.CustomerID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPublisherSkipsMailWithoutAddress(t *testing.T) {
	gdb := setupNotificationsDB(t)
	mailer := &recordingMailer{}
	pub, err := NewPublisher(NewRepository(gdb), mailer, testLogger())
	require.NoError(t, err)

	order := publisherOrder()
	order.Email = ""
	pub.AttemptedDelivery(context.Background(), order, "nobody home")
	pub.LineItemCancelled(context.Background(), order, "Bulalo")

	require.Empty(t, mailer.sent)

	var rows []models.Notification
	require.NoError(t, gdb.Where("order_id = ?", order.OrderID).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Contains(t, []enums.NotificationType{
			enums.NotificationTypeAttemptedDelivery,
			enums.NotificationTypeLineItemCancelled,
		}, row.Type)
		require.Contains(t, row.Message, fmt.Sprintf("order %s", order.OrderID))
	}
}
