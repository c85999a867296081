package restaurant

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
)

// Repository persists the single storefront state row.
type Repository interface {
	Get(ctx context.Context) (*models.RestaurantState, error)
	Save(ctx context.Context, state *models.RestaurantState) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a restaurant state repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context) (*models.RestaurantState, error) {
	var state models.RestaurantState
	err := r.db.WithContext(ctx).
		Order("updated_at ASC").
		First(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *repository) Save(ctx context.Context, state *models.RestaurantState) error {
	if state.ID == uuid.Nil {
		state.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(state).Error
}
