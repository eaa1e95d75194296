package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"skydesk/internal/handler/support"
	middlewarePkg "skydesk/internal/middleware"
	"skydesk/internal/monitor"
	"skydesk/internal/orchestrator"
	"skydesk/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(orch *orchestrator.Orchestrator, watcher *monitor.Monitor, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	supportHandler := support.New(orch, watcher, logger)

	r.Route("/api", func(api chi.Router) {
		supportHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
