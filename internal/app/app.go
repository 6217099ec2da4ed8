package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"hpipulse/internal/cache"
	"hpipulse/internal/config"
	"hpipulse/internal/dataset"
	apierrors "hpipulse/internal/errors"
	"hpipulse/internal/files"
	"hpipulse/internal/infrastructure"
	customMiddleware "hpipulse/internal/middleware"
	"hpipulse/internal/services"
	handlers "hpipulse/internal/transport/http"
	"hpipulse/internal/validation"
	ws "hpipulse/internal/websocket"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.ServiceMetrics
	ErrorHandler   *apierrors.ErrorHandler
	WebSocketHub   *ws.Hub
	DatasetService *services.DatasetService
	HealthService  *services.HealthService
	Watcher        *files.Watcher
}

// NewApplication loads the configuration and logger, then builds the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("build_id", BuildID))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateServiceMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create service metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	hub := ws.NewHub(a.Logger, a.Metrics)
	hub.Start()
	a.WebSocketHub = hub

	mergeCache, err := cache.New[*dataset.MergeResult](
		cache.WithName("dataset"),
		cache.WithMaxEntries(a.Config.Dataset.CacheEntries),
		cache.WithMeter(a.OTelProviders.Meter),
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset cache: %w", err)
	}

	datasetService, err := services.NewDatasetService(
		os.DirFS(a.Paths.DataDir),
		services.DatasetConfig{
			Sources:          a.Config.Dataset.Sources,
			Concurrency:      a.Config.Dataset.Concurrency,
			NationwideRegion: a.Config.Dataset.NationwideRegion,
			MergeTimeout:     a.Config.Dataset.MergeTimeout,
		},
		services.DatasetDeps{
			Cache:    mergeCache,
			Tracer:   a.OTelProviders.Tracer,
			Metrics:  a.Metrics,
			Notifier: hub,
			Logger:   a.Logger,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize dataset service: %w", err)
	}
	a.DatasetService = datasetService

	a.HealthService = services.NewHealthService(
		config.AppVersion,
		BuildTime,
		a.Paths.DataDir,
		datasetService,
		hub,
		a.Logger,
	)

	if a.Config.Dataset.Watch {
		names := make([]string, 0, len(a.Config.Dataset.Sources))
		for _, src := range a.Config.Dataset.Sources {
			names = append(names, src.Path)
		}
		watcher, err := files.NewWatcher(a.Paths.DataDir, names, a.Config.Dataset.WatchDebounce,
			datasetService.HandleSourceChange, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create source watcher: %w", err)
		}
		a.Watcher = watcher
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter, so they are safe for the upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Handle("/ws", ws.Handler(a.WebSocketHub, ws.Options{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		PingPeriod:      a.Config.WebSocket.PingPeriod,
		PongWait:        a.Config.WebSocket.PongWait,
		CheckOrigin:     a.checkOrigin,
	}, a.Logger))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		datasetHandler := handlers.NewDatasetHandler(a.DatasetService, a.Config.Dataset.HeadRows, a.Logger, a.ErrorHandler)
		r.Mount("/dataset", datasetHandler.Routes())
	})
}

// getCORSConfig returns the CORS configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader},
		MaxAge:         300,
		Logger:         a.Logger,
	}
	if a.Config.Logging.Development {
		cfg.AllowedOrigins = append([]string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.AllowedOrigins...)
	}
	return cfg
}

// checkOrigin allows websocket upgrades without an Origin header, from any
// origin in development, and otherwise only from the allowed origins.
func (a *Application) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || a.Config.Logging.Development {
		return true
	}
	for _, allowed := range a.getCORSConfig().AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	a.Logger.WarnContext(r.Context(), "WebSocket origin not allowed", slog.String("origin", origin))
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the server and background services. cancel is called if
// the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			// Serving without live reload is still useful.
			a.Logger.WarnContext(ctx, "Source watcher not started", slog.String("error", err.Error()))
		}
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	go a.warmUp(ctx)

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// warmUp merges the dataset once so the first request hits the cache.
// Failures are already logged and recorded by the dataset service.
func (a *Application) warmUp(ctx context.Context) {
	start := time.Now()
	res, err := a.DatasetService.Dataset(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Dataset warm-up failed", slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Dataset warm-up complete",
		slog.Int("rows", res.Table.Len()),
		slog.Int("columns", res.Table.Width()),
		slog.Int("diagnostics", len(res.Diagnostics)),
		slog.Duration("duration", time.Since(start)))
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be cancelled; shutdown gets a fresh one.
	return a.Stop(context.Background())
}

// performStartupHealthCheck checks the data and logs directories and reports
// configured sources that are missing or unreadable.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string
	v := validation.NewSourceValidator(a.Logger)

	if err := v.ValidateWritableDirectory(a.Paths.LogsDir); err != nil {
		warnings = append(warnings, fmt.Sprintf("logs directory not writable: %s", a.Paths.LogsDir))
	}
	if err := v.ValidateDataDirectory(a.Paths.DataDir); err != nil {
		warnings = append(warnings, err.Error())
	}

	extracts, err := files.NewDiscovery(a.Paths.DataDir).FindExtracts(".")
	if err != nil {
		warnings = append(warnings, err.Error())
	}
	if latest, ok := files.GetLatestFile(extracts); ok {
		a.Logger.InfoContext(ctx, "Extracts discovered",
			slog.Int("count", len(extracts)),
			slog.String("latest", latest.Name),
			slog.Time("latest_mod_time", latest.ModTime))
	}

	for _, err := range v.ValidateSources(a.Paths.DataDir, a.Config.Dataset.Sources) {
		warnings = append(warnings, err.Error())
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
