package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

// FeeService is the staff-facing surface for managing delivery fees.
type FeeService interface {
	ListFees(ctx context.Context) ([]models.DeliveryFee, error)
	SetFee(ctx context.Context, location string, fee decimal.Decimal) (*models.DeliveryFee, error)
	RemoveFee(ctx context.Context, location string) error
}

type feeService struct {
	repo FeeRepository
}

// NewFeeService wires the fee management service.
func NewFeeService(repo FeeRepository) (FeeService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fee repository required")
	}
	return &feeService{repo: repo}, nil
}

func (s *feeService) ListFees(ctx context.Context) ([]models.DeliveryFee, error) {
	fees, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery fees")
	}
	return fees, nil
}

func (s *feeService) SetFee(ctx context.Context, location string, fee decimal.Decimal) (*models.DeliveryFee, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}
	if fee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee must not be negative")
	}

	record := &models.DeliveryFee{
		ID:       uuid.New(),
		Location: location,
		Fee:      fee,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save delivery fee")
	}
	return record, nil
}

func (s *feeService) RemoveFee(ctx context.Context, location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	}
	if err := s.repo.Delete(ctx, location); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery fee not found").
				WithDetails(map[string]string{"location": location})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete delivery fee")
	}
	return nil
}
