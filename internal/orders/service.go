package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/internal/inventory"
	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

// cancelGuardMessage is deliberately vague so a caller probing order ids
// cannot distinguish "missing" from "already protected".
const cancelGuardMessage = "no matching order or order already protected"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	OrderCancelled(ctx context.Context, order *models.Order, reason string)
	LineItemCancelled(ctx context.Context, order *models.Order, itemName string)
	OutForDelivery(ctx context.Context, order *models.Order)
	AttemptedDelivery(ctx context.Context, order *models.Order, reason string)
}

// Service drives the delivery lifecycle of finalized orders.
type Service interface {
	GetByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) (*OrderPage, error)
	List(ctx context.Context, params ListParams) (*OrderPage, error)
	UpdateDeliveryStatus(ctx context.Context, orderID, newStatus string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*models.Order, error)
	CancelOrderAdmin(ctx context.Context, orderID, reason string) (*models.Order, error)
	AttemptDelivery(ctx context.Context, orderID, reason string) (*models.Order, error)
	CancelLineItem(ctx context.Context, orderID string, itemIndex int, reason string) (*models.Order, error)
	Purge(ctx context.Context, orderID string) error
}

type service struct {
	repo         Repository
	tx           txRunner
	notify       notifier
	releaseStock bool
}

// NewService wires the order lifecycle service.
func NewService(repo Repository, tx txRunner, notify notifier, cfg config.OrdersConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if notify == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:         repo,
		tx:           tx,
		notify:       notify,
		releaseStock: cfg.ReleaseStockOnCancel,
	}, nil
}

func (s *service) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return s.loadOrder(ctx, orderID)
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) (*OrderPage, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	page, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return page, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*OrderPage, error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

// UpdateDeliveryStatus overwrites the delivery status. No transition table is
// enforced except the cancellation guard; moving an order into Cancelled goes
// through the same protection check as a customer cancellation, and Attempted
// Delivery goes through AttemptDelivery so the customer is notified.
func (s *service) UpdateDeliveryStatus(ctx context.Context, orderID, newStatus string) (*models.Order, error) {
	status, err := enums.ParseDeliveryStatus(newStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status")
	}
	if status.State == enums.DeliveryStateCancelled {
		return s.CancelOrder(ctx, orderID, status.Reason)
	}
	if status.State == enums.DeliveryStateAttemptedDelivery {
		return s.AttemptDelivery(ctx, orderID, status.Reason)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.SetStatus(status)
	updated, err := s.repo.Update(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
	}
	if status.State == enums.DeliveryStateOutForDelivery {
		s.notify.OutForDelivery(ctx, updated)
	}
	return updated, nil
}

func (s *service) CancelOrder(ctx context.Context, orderID, reason string) (*models.Order, error) {
	return s.cancel(ctx, orderID, reason, true)
}

// CancelOrderAdmin bypasses the protection guard entirely.
func (s *service) CancelOrderAdmin(ctx context.Context, orderID, reason string) (*models.Order, error) {
	return s.cancel(ctx, orderID, reason, false)
}

func (s *service) cancel(ctx context.Context, orderID, reason string, guarded bool) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		if guarded {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, cancelGuardMessage)
			}
		}
		return nil, err
	}

	if guarded {
		current, err := order.Status()
		if err == nil && current.Protected() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, cancelGuardMessage)
		}
	}

	order.SetStatus(enums.Cancelled(reason))

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Update(ctx, order); err != nil {
			return err
		}
		if s.releaseStock {
			return inventory.ReleaseAll(ctx, tx, inventory.ReservationsForItems(order.Items))
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	s.notify.OrderCancelled(ctx, order, reason)
	return order, nil
}

func (s *service) AttemptDelivery(ctx context.Context, orderID, reason string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.SetStatus(enums.AttemptedDelivery(reason))
	updated, err := s.repo.Update(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark attempted delivery")
	}
	s.notify.AttemptedDelivery(ctx, updated, reason)
	return updated, nil
}

// CancelLineItem zeroes the line at itemIndex and subtracts exactly that
// line's contribution from the subtotal and total. The slot is kept so later
// indexes stay valid.
func (s *service) CancelLineItem(ctx context.Context, orderID string, itemIndex int, reason string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if itemIndex < 0 || itemIndex >= len(order.Items) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item index out of range").
			WithDetails(map[string]int{"index": itemIndex, "items": len(order.Items)})
	}

	line := order.Items[itemIndex]
	if line.Quantity == 0 && line.UnitPrice.IsZero() {
		return order, nil
	}

	contribution := line.LineTotal()
	order.Items[itemIndex].Quantity = 0
	order.Items[itemIndex].UnitPrice = decimal.Zero
	order.Subtotal = order.Subtotal.Sub(contribution)
	order.Total = order.Total.Sub(contribution)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Update(ctx, order); err != nil {
			return err
		}
		if s.releaseStock && line.Quantity > 0 {
			return inventory.Release(ctx, tx, line.Name, line.Quantity)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel line item")
	}

	s.notify.LineItemCancelled(ctx, order, line.Name)
	return order, nil
}

func (s *service) Purge(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if err := s.repo.DeleteByOrderID(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge order")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
