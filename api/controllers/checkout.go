package controllers

import (
	"net/http"

	"github.com/bahaypares/ordering-backend/api/responses"
	"github.com/bahaypares/ordering-backend/api/validators"
	checkoutsvc "github.com/bahaypares/ordering-backend/internal/checkout"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
	"github.com/bahaypares/ordering-backend/pkg/logger"
)

// Checkout prices the caller's draft and either finalizes the order or
// stages it behind a gateway redirect, depending on the payment method.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, err := customerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutsvc.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), customerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
