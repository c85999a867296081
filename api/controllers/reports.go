package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/bahaypares/ordering-backend/api/responses"
	"github.com/bahaypares/ordering-backend/internal/reports"
	pkgerrors "github.com/bahaypares/ordering-backend/pkg/errors"
	"github.com/bahaypares/ordering-backend/pkg/logger"
)

// ReportsRange builds a sales report for an arbitrary [start, end) window.
func ReportsRange(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		start, err := requiredDateParam(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := requiredDateParam(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.OrdersInRange(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ReportsWindow serves the fixed daily/weekly/monthly/yearly windows around
// a reference date, defaulting to today.
func ReportsWindow(svc reports.Service, window string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		ref := time.Now().UTC()
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			parsed, err := parseDateParam(raw, "date")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ref = parsed
		}

		var (
			report *reports.Report
			err    error
		)
		switch window {
		case "daily":
			report, err = svc.Daily(r.Context(), ref)
		case "weekly":
			report, err = svc.Weekly(r.Context(), ref)
		case "monthly":
			report, err = svc.Monthly(r.Context(), ref)
		case "yearly":
			report, err = svc.Yearly(r.Context(), ref)
		default:
			err = pkgerrors.New(pkgerrors.CodeInternal, "unknown report window")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func requiredDateParam(r *http.Request, field string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(field))
	if raw == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").
			WithDetails(map[string]any{"field": field})
	}
	return parseDateParam(raw, field)
}
