package api

import (
	"encoding/json"
	"net/http"

	_ "github.com/blaisecz/sleepsense/docs"
	"github.com/blaisecz/sleepsense/internal/api/handler"
	"github.com/blaisecz/sleepsense/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	userHandler     *handler.UserHandler
	sessionHandler  *handler.SessionHandler
	analysisHandler *handler.AnalysisHandler
	log             *zap.Logger
}

func NewRouter(
	userHandler *handler.UserHandler,
	sessionHandler *handler.SessionHandler,
	analysisHandler *handler.AnalysisHandler,
	log *zap.Logger,
) *Router {
	return &Router{
		userHandler:     userHandler,
		sessionHandler:  sessionHandler,
		analysisHandler: analysisHandler,
		log:             log,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger(rt.log))
	r.Use(middleware.Tracing)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", rt.userHandler.Create)
			r.Get("/{userId}", rt.userHandler.GetByID)

			// Sleep sessions (manual entry + merged history)
			r.Route("/{userId}/sessions", func(r chi.Router) {
				r.Post("/", rt.sessionHandler.Create)
				r.Get("/", rt.sessionHandler.List)
				r.Get("/consolidated", rt.sessionHandler.ListConsolidated)

				r.Route("/decisions/{decisionId}", func(r chi.Router) {
					r.Post("/confirm", rt.sessionHandler.ConfirmOverwrite)
					r.Post("/cancel", rt.sessionHandler.CancelOverwrite)
				})

				r.Route("/{sessionId}", func(r chi.Router) {
					r.Get("/", rt.sessionHandler.GetByID)
					r.Patch("/", rt.sessionHandler.Update)
					r.Delete("/", rt.sessionHandler.Delete)
					r.Get("/analysis", rt.analysisHandler.AnalyzeSession)
				})
			})

			// Analysis
			r.Get("/{userId}/analysis/week", rt.analysisHandler.AnalyzeWeek)
			r.Get("/{userId}/naps", rt.analysisHandler.ListNaps)
		})
	})

	return r
}
