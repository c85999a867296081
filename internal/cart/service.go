package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/internal/inventory"
	"github.com/bahaypares/ordering-backend/internal/pricing"
	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/db"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type menuLoader interface {
	FindByName(ctx context.Context, name string) (*models.MenuItem, error)
}

type storefrontGate interface {
	IsOpen(ctx context.Context) (bool, error)
}

// LineInput is one requested cart line. The unit price is never taken from
// the client; it is snapshotted from the menu at confirmation time.
type LineInput struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// ConfirmCartInput carries a cart confirmation request.
type ConfirmCartInput struct {
	OrderID string      `json:"order_id" validate:"required"`
	Items   []LineInput `json:"items" validate:"required,min=1,dive"`
}

// Service manages a customer's draft order.
type Service interface {
	ConfirmCart(ctx context.Context, customerID uuid.UUID, input ConfirmCartInput) (*models.DraftOrder, error)
	Get(ctx context.Context, customerID uuid.UUID) (*models.DraftOrder, error)
	AddItem(ctx context.Context, customerID uuid.UUID, line LineInput) (*models.DraftOrder, error)
	ApplyDiscount(ctx context.Context, customerID uuid.UUID, tier enums.DiscountTier) (*models.DraftOrder, error)
	ResetDiscount(ctx context.Context, customerID uuid.UUID) (*models.DraftOrder, error)
	AbandonDraft(ctx context.Context, customerID uuid.UUID) error
}

type service struct {
	repo           Repository
	menu           menuLoader
	tx             txRunner
	gate           storefrontGate
	conflictPolicy string
}

// NewService wires the cart service dependencies. A nil gate means the
// storefront is always open.
func NewService(repo Repository, menu menuLoader, tx txRunner, gate storefrontGate, cfg config.OrdersConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart repository required")
	}
	if menu == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "menu loader required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	policy := cfg.DraftConflictPolicy
	if policy == "" {
		policy = config.DraftConflictReplace
	}
	return &service{repo: repo, menu: menu, tx: tx, gate: gate, conflictPolicy: policy}, nil
}

func (s *service) ConfirmCart(ctx context.Context, customerID uuid.UUID, input ConfirmCartInput) (*models.DraftOrder, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}

	lines, err := s.snapshotLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}

	if existing == nil {
		if err := s.ensureOrderIDFree(ctx, orderID); err != nil {
			return nil, err
		}
		draft := &models.DraftOrder{
			OrderID:    orderID,
			CustomerID: customerID,
			Items:      lines,
		}
		created, err := s.repo.Create(ctx, draft)
		if err != nil {
			if db.IsUniqueViolation(err, "ux_draft_orders_order_id") {
				return nil, duplicateOrderIDError(orderID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create draft")
		}
		return created, nil
	}

	switch s.conflictPolicy {
	case config.DraftConflictReject:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a draft order already exists for this customer")
	case config.DraftConflictAdd:
		existing.Items = append(existing.Items, lines...)
	default: // replace
		if existing.OrderID != orderID {
			if err := s.ensureOrderIDFree(ctx, orderID); err != nil {
				return nil, err
			}
			existing.OrderID = orderID
		}
		existing.Items = lines
	}
	clearDiscount(existing)

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update draft")
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, customerID uuid.UUID) (*models.DraftOrder, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	draft, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no draft order for customer")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	return draft, nil
}

func (s *service) AddItem(ctx context.Context, customerID uuid.UUID, line LineInput) (*models.DraftOrder, error) {
	draft, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	lines, err := s.snapshotLines(ctx, []LineInput{line})
	if err != nil {
		return nil, err
	}
	added := lines[0]

	merged := false
	for i := range draft.Items {
		if draft.Items[i].Name == added.Name && draft.Items[i].Quantity > 0 {
			draft.Items[i].Quantity += added.Quantity
			merged = true
			break
		}
	}
	if !merged {
		draft.Items = append(draft.Items, added)
	}
	clearDiscount(draft)

	updated, err := s.repo.Update(ctx, draft)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update draft")
	}
	return updated, nil
}

// ApplyDiscount stamps the 5% discount onto the draft. Safe to call more than
// once; the discount_applied flag keeps it from compounding.
func (s *service) ApplyDiscount(ctx context.Context, customerID uuid.UUID, tier enums.DiscountTier) (*models.DraftOrder, error) {
	if tier.IsNone() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount tier required")
	}
	draft, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if draft.DiscountApplied {
		return draft, nil
	}

	draft.DiscountAmount = pricing.DiscountFor(draft.Items.Subtotal(), tier)
	draft.DiscountApplied = true

	updated, err := s.repo.Update(ctx, draft)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update draft")
	}
	return updated, nil
}

func (s *service) ResetDiscount(ctx context.Context, customerID uuid.UUID) (*models.DraftOrder, error) {
	draft, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !draft.DiscountApplied && draft.DiscountAmount.IsZero() {
		return draft, nil
	}
	clearDiscount(draft)

	updated, err := s.repo.Update(ctx, draft)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update draft")
	}
	return updated, nil
}

// AbandonDraft deletes the draft and returns its quantities to inventory in
// one transaction.
func (s *service) AbandonDraft(ctx context.Context, customerID uuid.UUID) error {
	draft, err := s.Get(ctx, customerID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteByCustomer(ctx, customerID); err != nil {
			return err
		}
		return inventory.ReleaseAll(ctx, tx, inventory.ReservationsForItems(draft.Items))
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no draft order for customer")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "abandon draft")
	}
	return nil
}

func (s *service) snapshotLines(ctx context.Context, inputs []LineInput) (models.OrderItems, error) {
	lines := make(models.OrderItems, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"name": name})
		}

		item, err := s.menu.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found").
					WithDetails(map[string]any{"name": name})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
		}
		if !item.Available {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item is not available").
				WithDetails(map[string]any{"name": name})
		}

		lines = append(lines, models.OrderItem{
			Name:      item.Name,
			Quantity:  in.Quantity,
			UnitPrice: item.EffectivePrice(),
		})
	}
	return lines, nil
}

func (s *service) ensureOpen(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	open, err := s.gate.IsOpen(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check restaurant state")
	}
	if !open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "restaurant is currently closed")
	}
	return nil
}

func (s *service) ensureOrderIDFree(ctx context.Context, orderID string) error {
	inUse, err := s.repo.OrderIDInUse(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order id")
	}
	if inUse {
		return duplicateOrderIDError(orderID)
	}
	return nil
}

func clearDiscount(draft *models.DraftOrder) {
	draft.DiscountAmount = decimal.Zero
	draft.DiscountApplied = false
}

func duplicateOrderIDError(orderID string) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateOrderID, "order id already in use").
		WithDetails(map[string]any{"order_id": orderID})
}
