package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

// newDashboardHandler renders the page for the default filter: the configured
// region over the whole dataset range.
func newDashboardHandler(store *services.SalesStore, cfg *config.Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		bounds := store.Bounds()
		filter := models.Filter{
			Region: store.DefaultRegion(cfg.Dataset.DefaultRegion),
			Start:  bounds.Start,
			End:    bounds.End,
		}
		charts := services.BuildCharts(store.Project(filter))

		summary, err := handlers.RenderSummary(filter, charts.Matched)
		if err != nil {
			logger.Error("render summary", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}

		view, err := templates.NewDashboardView(
			templates.AppInfo{
				Title:       cfg.App.Title,
				Description: cfg.App.Description,
				Footer:      cfg.App.Footer,
				SourceURL:   cfg.App.SourceURL,
			},
			store.Regions(), bounds, filter, charts, summary,
		)
		if err != nil {
			logger.Error("build dashboard view", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if !cfg.Debug {
			w.Header().Set("Cache-Control", cacheMaxAge)
		}
		if err := templates.Dashboard(view).Render(ctx, w); err != nil {
			logger.Error("render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging and disable page caching")
	configPath := flag.String("config", "", "path to a YAML config file (overrides $"+config.EnvConfigFile+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg.SetDebug(*debug)

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"csv_file", cfg.Dataset.CSVFile,
		"address", cfg.Address(),
		"debug", cfg.Debug,
	)

	store := services.NewSalesStore()
	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	defer cancel()

	start := time.Now()
	if err := store.LoadFromCSV(ctx, cfg.Dataset.CSVFile); err != nil {
		var pe *services.ParseError
		if errors.As(err, &pe) {
			logger.Error("malformed sales data", "file", pe.Path, "line", pe.Line, "column", pe.Column, "error", pe.Err)
		} else {
			logger.Error("failed to load CSV data", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully", "duration", time.Since(start))

	templateHandlers := &server.TemplateHandlers{
		Dashboard: newDashboardHandler(store, cfg, logger),
	}

	srv := server.NewServer(store, logger, cfg.Dataset.DefaultRegion, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("releasing sales data", "stats", store.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
