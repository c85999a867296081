package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
)

// Repository is the persistence surface over the finalized and pending
// order stores.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) (*OrderPage, error)
	List(ctx context.Context, params ListParams) (*OrderPage, error)
	ListPlacedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error)
	DeleteByOrderID(ctx context.Context, orderID string) error

	CreatePending(ctx context.Context, pending *models.PendingOrder) (*models.PendingOrder, error)
	UpdatePending(ctx context.Context, pending *models.PendingOrder) (*models.PendingOrder, error)
	FindPendingByOrderID(ctx context.Context, orderID string) (*models.PendingOrder, error)
	ListPendingExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PendingOrder, error)
	DeletePendingByOrderID(ctx context.Context, orderID string) error
}
