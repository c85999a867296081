package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bahaypares/ordering-backend/api/responses"
	"github.com/bahaypares/ordering-backend/api/validators"
	"github.com/bahaypares/ordering-backend/internal/pricing"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
	"github.com/bahaypares/ordering-backend/pkg/logger"
)

// FeesList returns every configured delivery fee.
func FeesList(svc pricing.FeeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fee service unavailable"))
			return
		}

		fees, err := svc.ListFees(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"fees": fees})
	}
}

type setFeeRequest struct {
	Location string          `json:"location" validate:"required"`
	Fee      decimal.Decimal `json:"fee" validate:"required"`
}

// FeesSet creates or updates the fee for a delivery location. Staff only.
func FeesSet(svc pricing.FeeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fee service unavailable"))
			return
		}

		var body setFeeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fee, err := svc.SetFee(r.Context(), body.Location, body.Fee)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fee)
	}
}

// FeesRemove deletes the fee for a location. Staff only.
func FeesRemove(svc pricing.FeeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fee service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "location"))
		location, err := url.PathUnescape(raw)
		if err != nil || strings.TrimSpace(location) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "location is required"))
			return
		}

		if err := svc.RemoveFee(r.Context(), location); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
