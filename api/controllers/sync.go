package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stocksync-backend/api/responses"
	"github.com/angelmondragon/stocksync-backend/api/validators"
	"github.com/angelmondragon/stocksync-backend/internal/scheduler"
	"github.com/angelmondragon/stocksync-backend/internal/syncer"
	"github.com/angelmondragon/stocksync-backend/internal/synclog"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/pagination"
)

func sourceFromPath(r *http.Request) (enums.SyncSource, error) {
	raw := chi.URLParam(r, "source")
	source, err := enums.ParseSyncSource(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sync source").WithDetails(map[string]any{"field": "source"})
	}
	return source, nil
}

type triggerSyncRequest struct {
	Limit        int  `json:"limit,omitempty" validate:"omitempty,min=1,max=500"`
	ProcessStock bool `json:"process_stock,omitempty"`
}

// TriggerSync starts a manual full sync for one source. A run already
// holding the source's slot rejects the request with a conflict.
func TriggerSync(sched *scheduler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		source, err := sourceFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := triggerSyncRequest{ProcessStock: true}
		if r.Body != nil && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		run, err := sched.TriggerSync(r.Context(), source, syncer.FullSyncOptions{
			Limit:        payload.Limit,
			ProcessStock: payload.ProcessStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, run)
	}
}

// BackfillDetail refetches detail for mirrored records of one source.
func BackfillDetail(orchestrators map[enums.SyncSource]syncer.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source, err := sourceFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orch, ok := orchestrators[source]
		if !ok || orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orchestrator unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		forceAll := strings.EqualFold(r.URL.Query().Get("force"), "true")

		result, err := orch.SyncDetail(r.Context(), syncer.DetailOptions{Limit: limit, ForceAll: forceAll})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RetryRecord requeues one failed or already-processed record so the
// next eligible pass revisits it. The ledger's idempotency keeps the
// replay from double counting.
func RetryRecord(orchestrators map[enums.SyncSource]syncer.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source, err := sourceFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orch, ok := orchestrators[source]
		if !ok || orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orchestrator unavailable"))
			return
		}

		number := strings.TrimSpace(chi.URLParam(r, "number"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "record number is required"))
			return
		}

		if err := orch.RetryRecord(r.Context(), number); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "requeued", "number": number})
	}
}

// ListSyncRuns returns the run history, newest first. An optional
// source query narrows it to one portal.
func ListSyncRuns(svc synclog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync log unavailable"))
			return
		}

		var source enums.SyncSource
		if raw := strings.TrimSpace(r.URL.Query().Get("source")); raw != "" {
			parsed, err := enums.ParseSyncSource(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sync source").WithDetails(map[string]any{"field": "source"}))
				return
			}
			source = parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), source, pagination.Params{
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

// SchedulerStatus reports whether each source is currently syncing and
// how its last finished run went.
func SchedulerStatus(sched *scheduler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		status, err := sched.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
