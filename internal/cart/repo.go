package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, draft *models.DraftOrder) (*models.DraftOrder, error)
	Update(ctx context.Context, draft *models.DraftOrder) (*models.DraftOrder, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DraftOrder, error)
	DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error
	OrderIDInUse(ctx context.Context, orderID string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a draft order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, draft *models.DraftOrder) (*models.DraftOrder, error) {
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *repository) Update(ctx context.Context, draft *models.DraftOrder) (*models.DraftOrder, error) {
	if err := r.db.WithContext(ctx).Save(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *repository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DraftOrder, error) {
	var draft models.DraftOrder
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&draft).Error
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *repository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&models.DraftOrder{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// OrderIDInUse reports whether the client-supplied order id is already claimed
// by another draft, a finalized order, or a pending payment.
func (r *repository) OrderIDInUse(ctx context.Context, orderID string) (bool, error) {
	for _, model := range []any{&models.DraftOrder{}, &models.Order{}, &models.PendingOrder{}} {
		var count int64
		err := r.db.WithContext(ctx).
			Model(model).
			Where("order_id = ?", orderID).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
