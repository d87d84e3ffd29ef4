// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cds-snc/list-manager/internal/config"
	"github.com/cds-snc/list-manager/internal/lists"
	listspostgres "github.com/cds-snc/list-manager/internal/lists/postgres"
	"github.com/cds-snc/list-manager/internal/mailout"
	mailoutpostgres "github.com/cds-snc/list-manager/internal/mailout/postgres"
	"github.com/cds-snc/list-manager/internal/notify"
	"github.com/cds-snc/list-manager/internal/pkg/ctxlog"
	"github.com/cds-snc/list-manager/internal/pkg/httputil"
	"github.com/cds-snc/list-manager/internal/pkg/metrics"
	"github.com/cds-snc/list-manager/internal/pkg/migrate"
	"github.com/cds-snc/list-manager/internal/pkg/postgres"
	"github.com/cds-snc/list-manager/internal/subscriptions"
	subscriptionspostgres "github.com/cds-snc/list-manager/internal/subscriptions/postgres"
	"github.com/cds-snc/list-manager/internal/version"
	"github.com/cds-snc/list-manager/migrations"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.Migrate {
		if err := migrate.Up(cfg.Database.URL, migrations.FS); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, err := app.setupRouter()
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/version", a.versionHandler)
	r.Get("/healthcheck", a.healthcheckHandler)

	notifyClient, err := notify.NewClient(notify.Config{
		BaseURL:   a.config.Notify.BaseURL,
		APIKey:    a.config.Notify.APIKey,
		Timeout:   a.config.Notify.Timeout,
		RateLimit: a.config.Notify.RateLimit,
	})
	if err != nil {
		return nil, err
	}

	listsRepo := listspostgres.NewRepository(a.db)
	listsService := lists.NewService(listsRepo, a.config.RedirectAllowList)
	listsHandler := lists.NewHandler(listsService)

	subscriptionsRepo := subscriptionspostgres.NewRepository(a.db)
	subscriptionsService := subscriptions.NewService(subscriptionsRepo, listsService, notifyClient, a.config.BaseURL)
	subscriptionsHandler := subscriptions.NewHandler(subscriptionsService)

	mailoutRepo := mailoutpostgres.NewRepository(a.db)
	mailoutService := mailout.NewService(mailoutRepo, notifyClient, a.config.BaseURL, a.config.Notify.RecipientLimit)
	mailoutHandler := mailout.NewHandler(mailoutService)

	listsHandler.RegisterPublicRoutes(r)
	subscriptionsHandler.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(a.config.Auth.Token))

		listsHandler.RegisterProtectedRoutes(r)
		subscriptionsHandler.RegisterProtectedRoutes(r)
		mailoutHandler.RegisterProtectedRoutes(r)
	})

	return r, nil
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

// healthcheckHandler reports database connectivity together with the schema
// version the migrations have reached.
func (a *App) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var dbVersion int64
	var dirty bool
	err := a.db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&dbVersion, &dirty)
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("healthcheck failed", "error", err)
		httputil.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"database": map[string]interface{}{
				"able_to_connect": false,
			},
		})
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"database": map[string]interface{}{
			"able_to_connect": true,
			"db_version":      dbVersion,
			"dirty":           dirty,
		},
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
