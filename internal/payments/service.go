package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bahaypares/ordering-backend/internal/orders"
	"github.com/bahaypares/ordering-backend/pkg/bux"
	"github.com/bahaypares/ordering-backend/pkg/db/models"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
	"github.com/bahaypares/ordering-backend/pkg/logger"
	"github.com/bahaypares/ordering-backend/pkg/redis"
)

// paymentFailedAnnotation replaces the payment method on a pending order
// whose callback reported anything other than "paid".
const paymentFailedAnnotation = "Payment not successful"

// callbackDedupTTL bounds how long a processed req_id/status pair blocks
// redelivery of the same callback.
const callbackDedupTTL = 48 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type callbackVerifier interface {
	VerifyCallback(cb bux.Callback) bool
}

type notifier interface {
	PaymentConfirmed(ctx context.Context, order *models.Order)
}

// Service processes signed gateway callbacks.
type Service interface {
	HandleCallback(ctx context.Context, cb bux.Callback) error
}

type service struct {
	repo     orders.Repository
	tx       txRunner
	verifier callbackVerifier
	idem     redis.IdempotencyStore
	notify   notifier
	logg     *logger.Logger
}

// NewService wires the payment callback handler. The idempotency store is
// optional; without it duplicate deliveries fall back to the store checks.
func NewService(repo orders.Repository, tx txRunner, verifier callbackVerifier, idem redis.IdempotencyStore, notify notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "callback verifier required")
	}
	if notify == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		verifier: verifier,
		idem:     idem,
		notify:   notify,
		logg:     logg,
	}, nil
}

// HandleCallback verifies the signature before touching any state. A paid
// status promotes the pending order into the finalized store; any other
// status annotates the pending record in place so staff can chase it.
func (s *service) HandleCallback(ctx context.Context, cb bux.Callback) error {
	if strings.TrimSpace(cb.ReqID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "req_id required")
	}
	if !s.verifier.VerifyCallback(cb) {
		return pkgerrors.New(pkgerrors.CodeSignatureMismatch, "signature mismatch")
	}

	claimed, dedupKey := s.claimCallback(ctx, cb)
	if !claimed {
		return nil
	}

	pending, err := s.repo.FindPendingByOrderID(ctx, cb.ReqID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resolved := s.resolveMissingPending(ctx, cb)
			if resolved != nil {
				s.releaseClaim(ctx, dedupKey)
			}
			return resolved
		}
		s.releaseClaim(ctx, dedupKey)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending order")
	}

	if cb.Status != bux.StatusPaid {
		pending.PaymentMethod = paymentFailedAnnotation
		if _, err := s.repo.UpdatePending(ctx, pending); err != nil {
			s.releaseClaim(ctx, dedupKey)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "annotate pending order")
		}
		if s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("payment for order %s reported status %q", cb.ReqID, cb.Status))
		}
		return nil
	}

	order := pending.ToOrder()
	order.PaymentMethod = fmt.Sprintf("Paid Online Ref#:%s", cb.ReqID)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		if _, err := scoped.Create(ctx, &order); err != nil {
			return err
		}
		return scoped.DeletePendingByOrderID(ctx, cb.ReqID)
	})
	if err != nil {
		s.releaseClaim(ctx, dedupKey)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote pending order")
	}

	s.notify.PaymentConfirmed(ctx, &order)
	return nil
}

// claimCallback claims the req_id/status pair so a redelivered callback is
// acked without reprocessing. Redis being down never blocks a callback; the
// pending-store lookup still dedups promotions.
func (s *service) claimCallback(ctx context.Context, cb bux.Callback) (bool, string) {
	if s.idem == nil {
		return true, ""
	}
	key := s.idem.IdempotencyKey("payment_callback", cb.ReqID+":"+cb.Status)
	claimed, err := s.idem.SetNX(ctx, key, "1", callbackDedupTTL)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "callback dedup store unavailable")
		}
		return true, ""
	}
	return claimed, key
}

// releaseClaim frees the dedup key after a processing failure so the gateway
// retry gets another attempt.
func (s *service) releaseClaim(ctx context.Context, key string) {
	if s.idem == nil || key == "" {
		return
	}
	if err := s.idem.Del(ctx, key); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "failed to release callback dedup key")
	}
}

// resolveMissingPending decides whether a missing pending row is a retry of
// an already promoted payment (ack it) or a callback for an unknown order.
func (s *service) resolveMissingPending(ctx context.Context, cb bux.Callback) error {
	if cb.Status == bux.StatusPaid {
		order, err := s.repo.FindByOrderID(ctx, cb.ReqID)
		if err == nil && strings.HasPrefix(order.PaymentMethod, "Paid Online Ref#:") {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "no pending order for callback").
		WithDetails(map[string]string{"req_id": cb.ReqID})
}
