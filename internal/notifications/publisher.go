package notifications

import (
	"context"
	"fmt"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
	"github.com/bahaypares/ordering-backend/pkg/logger"
	"github.com/bahaypares/ordering-backend/pkg/mail"
)

// Publisher fans order lifecycle events out to in-app notifications and
// transactional email. Delivery is best effort: failures are logged, never
// surfaced to the caller, so a flaky SMTP relay cannot fail an order flow.
type Publisher struct {
	repo   Repository
	mailer mail.Mailer
	logg   *logger.Logger
}

// NewPublisher wires the event publisher. The mailer may be nil, in which
// case only in-app notifications are recorded.
func NewPublisher(repo Repository, mailer mail.Mailer, logg *logger.Logger) (*Publisher, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Publisher{repo: repo, mailer: mailer, logg: logg}, nil
}

func (p *Publisher) OrderPlaced(ctx context.Context, order *models.Order) {
	p.publish(ctx, order, enums.NotificationTypeOrderPlaced,
		"Order received",
		fmt.Sprintf("We received your order %s. Total due: %s.", order.OrderID, order.Total.StringFixed(2)))
}

func (p *Publisher) PaymentConfirmed(ctx context.Context, order *models.Order) {
	p.publish(ctx, order, enums.NotificationTypePaymentConfirmed,
		"Payment confirmed",
		fmt.Sprintf("Payment for order %s was confirmed. Amount: %s.", order.OrderID, order.Total.StringFixed(2)))
}

func (p *Publisher) OutForDelivery(ctx context.Context, order *models.Order) {
	p.publish(ctx, order, enums.NotificationTypeOutForDelivery,
		"Order out for delivery",
		fmt.Sprintf("Your order %s is on its way to %s.", order.OrderID, order.Location))
}

func (p *Publisher) AttemptedDelivery(ctx context.Context, order *models.Order, reason string) {
	p.publish(ctx, order, enums.NotificationTypeAttemptedDelivery,
		"Delivery attempted",
		fmt.Sprintf("We attempted to deliver order %s but could not complete it: %s.", order.OrderID, reason))
}

func (p *Publisher) OrderCancelled(ctx context.Context, order *models.Order, reason string) {
	p.publish(ctx, order, enums.NotificationTypeOrderCancelled,
		"Order cancelled",
		fmt.Sprintf("Order %s was cancelled: %s.", order.OrderID, reason))
}

func (p *Publisher) LineItemCancelled(ctx context.Context, order *models.Order, itemName string) {
	p.publish(ctx, order, enums.NotificationTypeLineItemCancelled,
		"Item removed from order",
		fmt.Sprintf("%s was removed from order %s. New total: %s.", itemName, order.OrderID, order.Total.StringFixed(2)))
}

func (p *Publisher) publish(ctx context.Context, order *models.Order, kind enums.NotificationType, title, message string) {
	if order == nil {
		return
	}
	ctx = p.logg.WithOrderID(ctx, order.OrderID)

	record := &models.Notification{
		CustomerID: order.CustomerID,
		Type:       kind,
		Title:      title,
		Message:    message,
		OrderID:    order.OrderID,
	}
	if err := p.repo.Create(ctx, record); err != nil {
		p.logg.Error(ctx, "record notification", err)
	}

	if p.mailer == nil || order.Email == "" {
		return
	}
	msg := mail.Message{
		To:       order.Email,
		Subject:  fmt.Sprintf("Bahay Pares: %s", title),
		HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>%s</p>", order.Username, message),
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		p.logg.Warn(ctx, fmt.Sprintf("notification email to %s failed: %v", order.Email, err))
	}
}
