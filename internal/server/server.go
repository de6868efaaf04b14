package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/assets"
)

type Server struct {
	store       *services.SalesStore
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(store *services.SalesStore, logger *slog.Logger, defaultRegion string, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		store:       store,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(store, logger, defaultRegion),
		sseHandlers: handlers.NewSSEHandlers(store, logger, defaultRegion),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(assets.FS)))
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/regions", s.apiHandlers.HandleRegions)
	s.mux.HandleFunc("GET /api/bounds", s.apiHandlers.HandleBounds)
	s.mux.HandleFunc("GET /api/projection", s.apiHandlers.HandleProjection)
	s.mux.HandleFunc("GET /api/export.xlsx", s.apiHandlers.HandleExport)
	s.mux.HandleFunc("GET /charts/{name}", s.apiHandlers.HandleChartPNG)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/charts", s.sseHandlers.HandleCharts)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
