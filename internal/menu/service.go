package menu

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

// Service defines menu read and staff management operations.
type Service interface {
	List(ctx context.Context, params ListParams) ([]models.MenuItem, error)
	Get(ctx context.Context, category, name string) (*models.MenuItem, error)
	Create(ctx context.Context, input CreateItemInput) (*models.MenuItem, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.MenuItem, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	Restock(ctx context.Context, id uuid.UUID, delta int) (*models.MenuItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateItemInput carries a new menu item.
type CreateItemInput struct {
	Category    string           `json:"category" validate:"required"`
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	UnitPrice   decimal.Decimal  `json:"unit_price" validate:"required"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	Tag         string           `json:"tag"`
	StockQty    int              `json:"stock_qty" validate:"gte=0"`
	ImageURL    *string          `json:"image_url"`
}

// UpdateItemInput carries partial updates; nil fields are left unchanged.
type UpdateItemInput struct {
	Description *string          `json:"description"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	Tag         *string          `json:"tag"`
	ImageURL    *string          `json:"image_url"`
}

type service struct {
	repo Repository
}

// NewService wires the menu service dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "menu repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.MenuItem, error) {
	if params.Tag != "" && !params.Tag.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu tag")
	}
	params.Search = strings.TrimSpace(params.Search)
	items, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, category, name string) (*models.MenuItem, error) {
	if category == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category and name required")
	}
	item, err := s.repo.FindByCategoryAndName(ctx, category, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	return item, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*models.MenuItem, error) {
	category := strings.TrimSpace(input.Category)
	name := strings.TrimSpace(input.Name)
	if category == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category and name required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	tag := enums.MenuTagNormal
	if input.Tag != "" {
		parsed, err := enums.ParseMenuTag(input.Tag)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu tag")
		}
		tag = parsed
	}

	item := &models.MenuItem{
		Category:    category,
		Name:        name,
		Description: input.Description,
		UnitPrice:   input.UnitPrice,
		SalePrice:   input.SalePrice,
		Available:   true,
		Tag:         tag,
		StockQty:    input.StockQty,
		ImageURL:    input.ImageURL,
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_menu_items_category_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "menu item already exists in category")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu item")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.MenuItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}

	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		item.UnitPrice = *input.UnitPrice
	}
	if input.SalePrice != nil {
		item.SalePrice = input.SalePrice
	}
	if input.Tag != nil {
		parsed, err := enums.ParseMenuTag(*input.Tag)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu tag")
		}
		item.Tag = parsed
	}
	if input.ImageURL != nil {
		item.ImageURL = input.ImageURL
	}

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update menu item")
	}
	return updated, nil
}

func (s *service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}

	if item.Available == available {
		return nil
	}
	item.Available = available
	if _, err := s.repo.Update(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update availability")
	}
	return nil
}

func (s *service) Restock(ctx context.Context, id uuid.UUID, delta int) (*models.MenuItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock delta cannot be zero")
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}

	next := item.StockQty + delta
	if next < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot go negative").
			WithDetails(map[string]int{"current": item.StockQty, "delta": delta})
	}
	item.StockQty = next

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock menu item")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete menu item")
	}
	return nil
}
