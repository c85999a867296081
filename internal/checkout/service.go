package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/internal/cart"
	"github.com/bahaypares/ordering-backend/internal/inventory"
	"github.com/bahaypares/ordering-backend/internal/orders"
	"github.com/bahaypares/ordering-backend/internal/pricing"
	"github.com/bahaypares/ordering-backend/pkg/bux"
	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type paymentGateway interface {
	ClientID() string
	NotificationURL() string
	RedirectURL() string
	EnabledChannels() []string
	CheckoutExpirySeconds() int
	OpenCheckout(ctx context.Context, req bux.CheckoutRequest) (string, error)
}

type notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order)
}

// Input captures the customer's checkout selections. Line items and prices
// come from the stored draft, never from this payload.
type Input struct {
	Location       string             `json:"location" validate:"required"`
	DiscountTier   enums.DiscountTier `json:"discount_tier"`
	DiscountCard   string             `json:"discount_card"`
	DiscountCardID string             `json:"discount_card_id"`
	PaymentMethod  string             `json:"payment_method" validate:"required"`
	Instruction    string             `json:"instruction"`
}

// Result is either a finalized order (offline settlement) or a staged
// pending order plus the gateway redirect the customer must follow.
type Result struct {
	Order       *models.Order        `json:"order,omitempty"`
	Pending     *models.PendingOrder `json:"pending,omitempty"`
	RedirectURL string               `json:"redirect_url,omitempty"`
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID, input Input) (*Result, error)
}

type service struct {
	tx         txRunner
	carts      cart.Repository
	orders     orders.Repository
	calc       pricing.Calculator
	users      userLoader
	gateway    paymentGateway
	notify     notifier
	pendingTTL time.Duration
}

// NewService wires the checkout orchestrator.
func NewService(
	tx txRunner,
	carts cart.Repository,
	ordersRepo orders.Repository,
	calc pricing.Calculator,
	users userLoader,
	gateway paymentGateway,
	notify notifier,
	cfg config.OrdersConfig,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if calc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing calculator required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user loader required")
	}
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if notify == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		tx:         tx,
		carts:      carts,
		orders:     ordersRepo,
		calc:       calc,
		users:      users,
		gateway:    gateway,
		notify:     notify,
		pendingTTL: cfg.PendingTTL,
	}, nil
}

// Execute prices the draft, reserves every line in one transaction and either
// finalizes the order (offline payment) or stages it while the gateway
// collects payment. Any reservation failure rolls the whole checkout back.
func (s *service) Execute(ctx context.Context, customerID uuid.UUID, input Input) (*Result, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery location required")
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	draft, err := s.carts.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no draft order for customer")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	if len(draft.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft order has no items")
	}

	user, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	totals, err := s.calc.ComputeTotals(ctx, draft.Items, input.DiscountTier, input.Location)
	if err != nil {
		return nil, err
	}

	placedAt := time.Now().UTC()

	if method.IsOnline() {
		return s.executeOnline(ctx, customerID, draft, user, input, totals, placedAt)
	}

	result := &Result{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := inventory.ReserveAll(ctx, tx, inventory.ReservationsForItems(draft.Items)); err != nil {
			return err
		}
		order := s.buildOrder(draft, user, input, totals, placedAt, method.String())
		created, err := s.orders.WithTx(tx).Create(ctx, order)
		if err != nil {
			return err
		}
		if err := s.carts.WithTx(tx).DeleteByCustomer(ctx, customerID); err != nil {
			return err
		}
		result.Order = created
		return nil
	})
	if err != nil {
		return nil, wrapCheckoutErr(err)
	}

	s.notify.OrderPlaced(ctx, result.Order)
	return result, nil
}

// executeOnline stages the reservation and pending order in their own
// transaction, then opens the gateway session with no row locks held. The
// draft is only cleared once the session exists, so a gateway outage leaves
// the cart untouched.
func (s *service) executeOnline(ctx context.Context, customerID uuid.UUID, draft *models.DraftOrder, user *models.User, input Input, totals pricing.Totals, placedAt time.Time) (*Result, error) {
	var staged *models.PendingOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := inventory.ReserveAll(ctx, tx, inventory.ReservationsForItems(draft.Items)); err != nil {
			return err
		}
		created, err := s.orders.WithTx(tx).CreatePending(ctx, s.buildPending(draft, user, input, totals, placedAt))
		if err != nil {
			return err
		}
		staged = created
		return nil
	})
	if err != nil {
		return nil, wrapCheckoutErr(err)
	}

	redirect, err := s.gateway.OpenCheckout(ctx, s.buildGatewayRequest(staged, user))
	if err != nil {
		s.releaseStaged(ctx, staged)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open gateway checkout")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.carts.WithTx(tx).DeleteByCustomer(ctx, customerID)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear draft after checkout")
	}

	return &Result{Pending: staged, RedirectURL: redirect}, nil
}

// releaseStaged undoes a staged online checkout whose gateway session never
// opened. If the compensating transaction itself fails, the expiry sweep
// reclaims the stock once the pending order passes its TTL.
func (s *service) releaseStaged(ctx context.Context, staged *models.PendingOrder) {
	_ = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).DeletePendingByOrderID(ctx, staged.OrderID); err != nil {
			return err
		}
		return inventory.ReleaseAll(ctx, tx, inventory.ReservationsForItems(staged.Items))
	})
}

func wrapCheckoutErr(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute checkout")
}

func (s *service) buildOrder(draft *models.DraftOrder, user *models.User, input Input, totals pricing.Totals, placedAt time.Time, method string) *models.Order {
	return &models.Order{
		OrderID:        draft.OrderID,
		CustomerID:     user.ID,
		Username:       user.Username,
		Phone:          user.Phone,
		Email:          user.Email,
		Location:       strings.TrimSpace(input.Location),
		Items:          draft.Items,
		DiscountTier:   input.DiscountTier,
		DiscountCard:   input.DiscountCard,
		DiscountCardID: input.DiscountCardID,
		Subtotal:       totals.Subtotal,
		DeliveryFee:    totals.DeliveryFee,
		Discount:       totals.DiscountAmount,
		Total:          totals.Total,
		PaymentMethod:  method,
		DeliveryStatus: enums.DeliveryStatePending.String(),
		Instruction:    input.Instruction,
		PlacedAt:       placedAt,
	}
}

func (s *service) buildPending(draft *models.DraftOrder, user *models.User, input Input, totals pricing.Totals, placedAt time.Time) *models.PendingOrder {
	var expiresAt *time.Time
	if s.pendingTTL > 0 {
		expiry := placedAt.Add(s.pendingTTL)
		expiresAt = &expiry
	}
	return &models.PendingOrder{
		OrderID:        draft.OrderID,
		CustomerID:     user.ID,
		Username:       user.Username,
		Phone:          user.Phone,
		Email:          user.Email,
		Location:       strings.TrimSpace(input.Location),
		Items:          draft.Items,
		DiscountTier:   input.DiscountTier,
		DiscountCard:   input.DiscountCard,
		DiscountCardID: input.DiscountCardID,
		Subtotal:       totals.Subtotal,
		DeliveryFee:    totals.DeliveryFee,
		Discount:       totals.DiscountAmount,
		Total:          totals.Total,
		PaymentMethod:  enums.PaymentMethodEWallet.String(),
		DeliveryStatus: enums.DeliveryStatePending.String(),
		Instruction:    input.Instruction,
		PlacedAt:       placedAt,
		ExpiresAt:      expiresAt,
	}
}

// buildGatewayRequest frames the hosted checkout session. The req_id is the
// order id so the signed callback can be matched back to its pending order.
func (s *service) buildGatewayRequest(pending *models.PendingOrder, user *models.User) bux.CheckoutRequest {
	return bux.CheckoutRequest{
		ReqID:           pending.OrderID,
		ClientID:        s.gateway.ClientID(),
		Amount:          pending.Total,
		Description:     fmt.Sprintf("Bahay Pares order %s", pending.OrderID),
		Expiry:          s.gateway.CheckoutExpirySeconds(),
		Email:           user.Email,
		Contact:         user.Phone,
		Name:            user.Username,
		NotificationURL: s.gateway.NotificationURL(),
		RedirectURL:     s.gateway.RedirectURL(),
		EnabledChannels: s.gateway.EnabledChannels(),
	}
}
