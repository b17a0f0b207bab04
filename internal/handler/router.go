package handler

import (
	"net/http"
	"sort"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/observability"
	"github.com/arunvilla/Finomini-POC-sub002/internal/port"
	"github.com/arunvilla/Finomini-POC-sub002/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates the HTTP router for the sync daemon. The mobile-web app
// backend calls these routes; sync stays a library underneath.
func NewRouter(
	syncer *service.Syncer,
	txStore port.TransactionStore,
	linkStore port.LinkStore,
	metrics *observability.Metrics,
	jwtSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(JWTAuthMiddleware(jwtSecret, logger))
		}

		r.Post("/sync", syncAllHandler(syncer, logger))
		r.Post("/sync/{linkId}", syncLinkHandler(syncer, logger))
		r.Get("/sync/{linkId}/status", syncStatusHandler(syncer))
		r.Get("/sync/status", syncStatusesHandler(syncer))

		r.Get("/links", listLinksHandler(linkStore, logger))
		r.Get("/transactions", listTransactionsHandler(txStore, logger))

		r.Get("/metrics/sync", syncMetricsHandler(metrics))
	})

	return r
}

func listLinksHandler(linkStore port.LinkStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		links, err := linkStore.ListLinks(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"links": links})
	}
}

func listTransactionsHandler(txStore port.TransactionStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txns, err := txStore.ListAll(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		sort.SliceStable(txns, func(i, j int) bool {
			return txns[i].Date.After(txns[j].Date)
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": txns,
			"count":        len(txns),
		})
	}
}

func syncMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSyncSnapshot())
	}
}

// syncModeFromRequest reads ?mode=full|incremental, defaulting incremental.
func syncModeFromRequest(r *http.Request) (string, error) {
	mode := r.URL.Query().Get("mode")
	switch mode {
	case "", domain.SyncModeIncremental:
		return domain.SyncModeIncremental, nil
	case domain.SyncModeFull:
		return domain.SyncModeFull, nil
	default:
		return "", &domain.ErrValidation{Field: "mode", Message: "must be incremental or full"}
	}
}
