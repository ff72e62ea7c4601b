package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ems/internal/domain/announcement"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/dashboard"
	"ems/internal/domain/employee"
	"ems/internal/domain/project"
	"ems/internal/platform/cache"
	"ems/internal/platform/config"
	cryptoutil "ems/internal/platform/crypto"
	"ems/internal/platform/db"
	"ems/internal/platform/email"
	"ems/internal/platform/imagehost"
	"ems/internal/platform/jobs"
	"ems/internal/platform/logging"
	"ems/internal/platform/metrics"
	"ems/internal/platform/realtime"
	announcementhandler "ems/internal/transport/http/handlers/announcement"
	audithandler "ems/internal/transport/http/handlers/audit"
	authhandler "ems/internal/transport/http/handlers/auth"
	dashboardhandler "ems/internal/transport/http/handlers/dashboard"
	employeehandler "ems/internal/transport/http/handlers/employee"
	jobshandler "ems/internal/transport/http/handlers/jobs"
	projecthandler "ems/internal/transport/http/handlers/project"
	streamhandler "ems/internal/transport/http/handlers/stream"
	uploadshandler "ems/internal/transport/http/handlers/uploads"
	"ems/internal/transport/http/middleware"
)

const cachePrefix = "ems:cache:"

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Log     *zap.Logger
	Metrics *metrics.Collector
	Hub     realtime.Hub
	Jobs    *jobs.Service
	Router  http.Handler

	streams *streamhandler.Handler
	stop    context.CancelFunc
}

// New connects every backing service and builds the router. Background
// workers run until Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log, err := logging.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if !crypto.Configured() {
		log.Warn("DATA_ENCRYPTION_KEY not set; salaries stored in plain columns and MFA disabled")
	}

	var m *metrics.Collector
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	redisClient := cache.Connect(ctx, cfg, log)
	var (
		summaryCache cache.Cache
		hub          realtime.Hub
	)
	if redisClient != nil {
		summaryCache = cache.NewRedis(redisClient, cachePrefix)
		hub = realtime.NewRedis(redisClient, log)
	} else {
		summaryCache = cache.NewMemory()
		hub = realtime.NewMemory()
	}
	hub = realtime.WithMetrics(hub, m)

	workerCtx, stop := context.WithCancel(context.Background())
	queue := jobs.New(pool, log)
	queue.Start(workerCtx, cfg.PurgeInterval)

	app := &App{
		Config:  cfg,
		DB:      pool,
		Redis:   redisClient,
		Log:     log,
		Metrics: m,
		Hub:     hub,
		Jobs:    queue,
		stop:    stop,
	}
	app.streams = streamhandler.NewHandler(hub, log.Named("stream"))
	app.Router = app.routes(crypto, summaryCache)
	return app, nil
}

func (a *App) routes(crypto *cryptoutil.Service, summaryCache cache.Cache) http.Handler {
	cfg, log := a.Config, a.Log
	recorder := audit.New(a.DB)

	authService := auth.NewService(auth.NewStore(a.DB), auth.Options{
		JWTSecret:       cfg.JWTSecret,
		SessionTTL:      cfg.SessionTTL,
		AllowSelfSignup: cfg.AllowSelfSignup,
		PublicBaseURL:   cfg.PublicBaseURL,
		EmailFrom:       cfg.EmailFrom,
	}, crypto, email.New(cfg), log.Named("auth"))
	authService.UseQueue(a.Jobs)

	employeeStore := employee.NewStore(a.DB, crypto, log)
	announcementService := announcement.NewService(announcement.NewStore(a.DB), recorder, a.Hub, log.Named("announcements"))
	dashboardService := dashboard.NewService(dashboard.EmployeeListerFunc(employeeStore.List), announcementService, summaryCache, cfg.DashboardCacheTTL, log.Named("dashboard"))
	employeeService := employee.NewService(employeeStore, employee.Deps{
		Audit:     recorder,
		Publisher: a.Hub,
		Cache:     dashboardService,
		Metrics:   a.Metrics,
		Log:       log.Named("employees"),
	})
	projectService := project.NewService(project.NewStore(a.DB), recorder, a.Hub, log.Named("projects"))
	images := imagehost.New(cfg.ImageHostURL, cfg.ImageHostAPIKey, cfg.ImageMaxBytes, a.Metrics, log.Named("imagehost"))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(cfg.JWTSecret, authService, log))
	router.Use(middleware.Logger(log, a.Metrics))
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", a.handleReady)
	if a.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithLogger(log)))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute, log))

		// Uploads cap their own body at the image limit; streams have no body.
		uploadshandler.NewHandler(images, log).RegisterRoutes(r)
		a.streams.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
			authhandler.NewHandler(authService, log).RegisterRoutes(r)
			employeehandler.NewHandler(employeeService, middleware.NewIdempotencyStore(a.DB), log).RegisterRoutes(r)
			dashboardhandler.NewHandler(dashboardService, log).RegisterRoutes(r)
			announcementhandler.NewHandler(announcementService, log).RegisterRoutes(r)
			projecthandler.NewHandler(projectService, log).RegisterRoutes(r)
			audithandler.NewHandler(recorder, log).RegisterRoutes(r)
			jobshandler.NewHandler(a.Jobs, log).RegisterRoutes(r)
		})
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})
	return router
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Close stops background work and releases connections.
func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.Hub != nil {
		_ = a.Hub.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	_ = a.Log.Sync()
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func Run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// No WriteTimeout: event streams stay open for the life of the page.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv.RegisterOnShutdown(app.streams.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		app.Log.Info("server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
