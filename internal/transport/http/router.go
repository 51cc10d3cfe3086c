// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services and encode; business logic stays behind the service
// interfaces.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"suvidha/internal/platform/middleware"
	"suvidha/pkg/requestcontext"
)

// Handler bundles the domain services behind one transport surface.
type Handler struct {
	officers  OfficerService
	transfers TransferService
	auditor   AuditorService
	logger    *slog.Logger
}

func NewHandler(officers OfficerService, transfers TransferService, auditorService AuditorService, logger *slog.Logger) *Handler {
	return &Handler{
		officers:  officers,
		transfers: transfers,
		auditor:   auditorService,
		logger:    logger,
	}
}

// NewRouter wires the public endpoints. Everything under /api/v1 requires an
// authenticated actor; health and metrics stay open for the platform.
func NewRouter(h *Handler, jwtSigningKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RequireActor(jwtSigningKey, h.logger))
		h.registerOfficerRoutes(api)
		h.registerTransferRoutes(api)
		h.registerAuditorRoutes(api)
	})
	return r
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx))
}
