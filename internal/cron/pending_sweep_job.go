package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/internal/inventory"
	"github.com/bahaypares/ordering-backend/internal/orders"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	"github.com/bahaypares/ordering-backend/pkg/logger"
)

const defaultSweepBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PendingSweepJobParams configure the abandoned payment sweeper.
type PendingSweepJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Repo      orders.Repository
	BatchSize int
}

// NewPendingSweepJob builds the cron job that reaps pending orders whose
// payment window lapsed and puts their reserved stock back on sale.
func NewPendingSweepJob(params PendingSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &pendingSweepJob{
		logg:  params.Logger,
		db:    params.DB,
		repo:  params.Repo,
		batch: batch,
		now:   time.Now,
	}, nil
}

type pendingSweepJob struct {
	logg  *logger.Logger
	db    txRunner
	repo  orders.Repository
	batch int
	now   func() time.Time
}

func (j *pendingSweepJob) Name() string { return "pending-order-sweep" }

func (j *pendingSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	swept := 0
	var errs []error

	for {
		expired, err := j.repo.ListPendingExpiredBefore(ctx, cutoff, j.batch)
		if err != nil {
			errs = append(errs, fmt.Errorf("list expired pending orders: %w", err))
			break
		}
		if len(expired) == 0 {
			break
		}

		progressed := false
		for _, pending := range expired {
			if err := j.sweep(ctx, pending); err != nil {
				errs = append(errs, fmt.Errorf("sweep order %s: %w", pending.OrderID, err))
				continue
			}
			progressed = true
			swept++
		}
		if !progressed {
			break
		}
		if len(expired) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"rows_swept": swept,
	})
	j.logg.Info(logCtx, "pending order sweep complete")
	return multierr.Combine(errs...)
}

func (j *pendingSweepJob) sweep(ctx context.Context, pending models.PendingOrder) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.repo.WithTx(tx).DeletePendingByOrderID(ctx, pending.OrderID); err != nil {
			return err
		}
		return inventory.ReleaseAll(ctx, tx, inventory.ReservationsForItems(pending.Items))
	})
}
