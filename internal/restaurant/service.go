package restaurant

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/pkg/db/models"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
)

// Service exposes the storefront open/closed flag. Customers read it; staff
// flip it. A missing row counts as open.
type Service interface {
	Status(ctx context.Context) (*models.RestaurantState, error)
	SetOpen(ctx context.Context, open bool) (*models.RestaurantState, error)
	IsOpen(ctx context.Context) (bool, error)
}

type service struct {
	repo Repository
}

// NewService wires the restaurant state service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "restaurant repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Status(ctx context.Context) (*models.RestaurantState, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.RestaurantState{Open: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant state")
	}
	return state, nil
}

func (s *service) SetOpen(ctx context.Context, open bool) (*models.RestaurantState, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant state")
		}
		state = &models.RestaurantState{}
	}

	state.Open = open
	if err := s.repo.Save(ctx, state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save restaurant state")
	}
	return state, nil
}

func (s *service) IsOpen(ctx context.Context) (bool, error) {
	state, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	return state.Open, nil
}
