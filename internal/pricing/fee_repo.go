package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

// FeeRepository persists delivery fees and serves fee lookups.
type FeeRepository interface {
	FeeSource
	WithTx(tx *gorm.DB) FeeRepository
	List(ctx context.Context) ([]models.DeliveryFee, error)
	Upsert(ctx context.Context, fee *models.DeliveryFee) error
	Delete(ctx context.Context, location string) error
}

type feeRepository struct {
	db *gorm.DB
}

// NewFeeRepository builds a fee repository bound to the provided DB.
func NewFeeRepository(db *gorm.DB) FeeRepository {
	return &feeRepository{db: db}
}

func (r *feeRepository) WithTx(tx *gorm.DB) FeeRepository {
	if tx == nil {
		return r
	}
	return &feeRepository{db: tx}
}

func (r *feeRepository) FeeForLocation(ctx context.Context, location string) (decimal.Decimal, error) {
	var fee models.DeliveryFee
	err := r.db.WithContext(ctx).
		Where("location = ?", location).
		First(&fee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnknownLocation, "no delivery fee for location").
				WithDetails(map[string]string{"location": location})
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up delivery fee")
	}
	return fee.Fee, nil
}

func (r *feeRepository) List(ctx context.Context) ([]models.DeliveryFee, error) {
	var fees []models.DeliveryFee
	err := r.db.WithContext(ctx).
		Order("location ASC").
		Find(&fees).Error
	if err != nil {
		return nil, err
	}
	return fees, nil
}

func (r *feeRepository) Upsert(ctx context.Context, fee *models.DeliveryFee) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location"}},
			DoUpdates: clause.AssignmentColumns([]string{"fee", "updated_at"}),
		}).
		Create(fee).Error
}

func (r *feeRepository) Delete(ctx context.Context, location string) error {
	result := r.db.WithContext(ctx).
		Where("location = ?", location).
		Delete(&models.DeliveryFee{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
