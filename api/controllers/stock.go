package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stocksync-backend/api/responses"
	"github.com/angelmondragon/stocksync-backend/api/validators"
	"github.com/angelmondragon/stocksync-backend/internal/stock"
	pkgerrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/pagination"
)

func skuFromPath(r *http.Request) (string, error) {
	sku := strings.TrimSpace(chi.URLParam(r, "sku"))
	if sku == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	return sku, nil
}

// StockSummary returns the aggregated position for one SKU.
func StockSummary(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		sku, err := skuFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// StockSummaries lists aggregated positions. ?low_stock=true narrows
// the listing to SKUs below their configured threshold.
func StockSummaries(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		lowStock := strings.EqualFold(r.URL.Query().Get("low_stock"), "true")

		summaries, err := svc.ListSummaries(r.Context(), lowStock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summaries)
	}
}

// StockMovements pages through the ledger, newest first. An optional
// sku query narrows the listing to one item.
func StockMovements(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Movements(r.Context(), strings.TrimSpace(r.URL.Query().Get("sku")), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

type adjustmentRequest struct {
	SKU    string `json:"sku" validate:"required"`
	Qty    int    `json:"qty" validate:"required"`
	Reason string `json:"reason" validate:"required,min=3"`
	Actor  string `json:"actor" validate:"required"`
}

// CreateAdjustment appends a manual correction movement to the ledger.
func CreateAdjustment(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		var payload adjustmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.CreateAdjustment(r.Context(),
			validators.SanitizeString(payload.SKU, 64),
			payload.Qty,
			validators.SanitizeString(payload.Reason, 500),
			validators.SanitizeString(payload.Actor, 100))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, movement)
	}
}

// RecalculateStock rebuilds one SKU's summary by replaying its ledger.
func RecalculateStock(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		sku, err := skuFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Recalculate(r.Context(), sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
