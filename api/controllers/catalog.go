package controllers

import (
	"net/http"

	"github.com/angelmondragon/stocksync-backend/api/responses"
	"github.com/angelmondragon/stocksync-backend/api/validators"
	"github.com/angelmondragon/stocksync-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
)

// ListUnmapped returns the temporary identities awaiting a manual remap.
func ListUnmapped(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		identities, err := svc.ListUnmapped(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, identities)
	}
}

type remapRequest struct {
	TempSKU   string `json:"temp_sku" validate:"required"`
	TargetSKU string `json:"target_sku" validate:"required"`
}

// RemapIdentity folds a temporary identity into a real SKU, or renames
// it in place when the target SKU is new.
func RemapIdentity(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload remapRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity, err := svc.Remap(r.Context(),
			validators.SanitizeString(payload.TempSKU, 64),
			validators.SanitizeString(payload.TargetSKU, 64))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, identity)
	}
}
