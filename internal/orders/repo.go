package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/enums"
	"github.com/bahaypares/ordering-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) Update(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) (*OrderPage, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("customer_id = ?", customerID)
	return r.listPage(query, params)
}

func (r *repository) List(ctx context.Context, params ListParams) (*OrderPage, error) {
	return r.listPage(r.db.WithContext(ctx).Model(&models.Order{}), params)
}

func (r *repository) listPage(query *gorm.DB, params ListParams) (*OrderPage, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(strings.TrimSpace(params.Cursor))
	if err != nil {
		return nil, err
	}

	if params.State != nil {
		query = query.Where("LOWER(delivery_status) LIKE ?", strings.ToLower(string(*params.State))+"%")
	}
	if params.DateFrom != nil {
		query = query.Where("placed_at >= ?", *params.DateFrom)
	}
	if params.DateTo != nil {
		query = query.Where("placed_at < ?", *params.DateTo)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &OrderPage{Orders: rows, NextCursor: nextCursor}, nil
}

// ListPlacedBetween returns every order placed in [start, end) regardless of
// status. Reporting filters on status afterwards.
func (r *repository) ListPlacedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("placed_at >= ? AND placed_at < ?", start, end).
		Order("placed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteByOrderID(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.Order{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreatePending(ctx context.Context, pending *models.PendingOrder) (*models.PendingOrder, error) {
	if pending.ID == uuid.Nil {
		pending.ID = uuid.New()
	}
	if pending.DeliveryStatus == "" {
		pending.DeliveryStatus = enums.DeliveryStatePending.String()
	}
	if err := r.db.WithContext(ctx).Create(pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *repository) UpdatePending(ctx context.Context, pending *models.PendingOrder) (*models.PendingOrder, error) {
	if err := r.db.WithContext(ctx).Save(pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *repository) FindPendingByOrderID(ctx context.Context, orderID string) (*models.PendingOrder, error) {
	var pending models.PendingOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&pending).Error
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *repository) ListPendingExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PendingOrder, error) {
	var rows []models.PendingOrder
	query := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeletePendingByOrderID(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.PendingOrder{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
