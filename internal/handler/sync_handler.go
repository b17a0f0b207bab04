package handler

import (
	"net/http"

	"github.com/arunvilla/Finomini-POC-sub002/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// syncLinkHandler triggers one sync cycle for a single link.
// POST /v1/sync/{linkId}?mode=incremental|full
func syncLinkHandler(syncer *service.Syncer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID := chi.URLParam(r, "linkId")
		mode, err := syncModeFromRequest(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := syncer.SyncAccount(r.Context(), linkID, mode)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// syncAllHandler triggers a sync across every registered link. Per-link
// failures live inside their slot in the response map; the call itself
// always succeeds.
// POST /v1/sync?mode=incremental|full
func syncAllHandler(syncer *service.Syncer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := syncModeFromRequest(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		results := syncer.SyncAll(r.Context(), mode)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

// syncStatusHandler returns the state machine snapshot for one link.
// GET /v1/sync/{linkId}/status
func syncStatusHandler(syncer *service.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, syncer.Status(chi.URLParam(r, "linkId")))
	}
}

// syncStatusesHandler returns snapshots for all links that have synced.
// GET /v1/sync/status
func syncStatusesHandler(syncer *service.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"statuses": syncer.Statuses()})
	}
}
