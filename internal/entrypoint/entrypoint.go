package entrypoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/audit"
	"github.com/mrlokans/readingroom/internal/auth"
	"github.com/mrlokans/readingroom/internal/catalog"
	"github.com/mrlokans/readingroom/internal/config"
	"github.com/mrlokans/readingroom/internal/database"
	auditRepo "github.com/mrlokans/readingroom/internal/database/audit"
	"github.com/mrlokans/readingroom/internal/database/books"
	"github.com/mrlokans/readingroom/internal/database/notes"
	pagesRepo "github.com/mrlokans/readingroom/internal/database/pages"
	"github.com/mrlokans/readingroom/internal/database/readingsessions"
	"github.com/mrlokans/readingroom/internal/database/users"
	http_controllers "github.com/mrlokans/readingroom/internal/http"
	"github.com/mrlokans/readingroom/internal/maintenance"
	"github.com/mrlokans/readingroom/internal/pages"
	"github.com/mrlokans/readingroom/internal/reading"
	"github.com/mrlokans/readingroom/internal/scheduler"
	"github.com/mrlokans/readingroom/internal/tasks"
	"github.com/mrlokans/readingroom/internal/uploads"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, log *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so it does not outlive the database
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// Run wires the application together and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string, log *zap.Logger) error {
	log.Info("starting readingroom", zap.String("version", version))

	if cfg.UsesDefaultAdminPassword() {
		log.Warn("ADMIN_PASSWORD is not set, using the development default; set it before exposing the server")
	}

	db, err := database.NewDatabase(cfg.Database.Path,
		database.WithLogger(log),
		database.WithDebugSQL(cfg.Database.DebugSQL))
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("error closing database", zap.Error(err))
		}
	}()

	files, err := uploads.NewStore(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("initialize uploads: %w", err)
	}

	booksRepo := books.NewRepository(db.DB)
	pageRepo := pagesRepo.NewRepository(db.DB)
	engine := pages.NewEngine(pageRepo, booksRepo, files, log.Named("pages"))
	catalogService := catalog.NewService(booksRepo, notes.NewRepository(db.DB), engine, files, log.Named("catalog"))
	tracker := reading.NewTracker(readingsessions.NewRepository(db.DB), booksRepo, reading.WithLogger(log.Named("reading")))
	auditService := audit.NewService(auditRepo.NewRepository(db.DB), log.Named("audit"))

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql db for sessions: %w", err)
	}
	sessions := auth.NewSessionManager(sqlDB, cfg.Auth)
	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
	authController := auth.NewAuthController(authService, sessions, auth.NewAdminGate(cfg.Admin.Password),
		cfg.UI.TemplatesPath, cfg.Auth,
		auth.WithAuditor(auditService),
		auth.WithLogger(log.Named("auth")))

	csrfSecret, err := sessionSecret(cfg.Auth.SessionSecret)
	if err != nil {
		return err
	}
	if cfg.Auth.SessionSecret == "" {
		log.Info("generated CSRF secret (set AUTH_SESSION_SECRET to keep forms valid across restarts)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	routerCfg := http_controllers.RouterConfig{
		Database:           db,
		Logger:             log.Named("http"),
		Catalog:            catalogService,
		Pages:              engine,
		Tracker:            tracker,
		Audit:              auditService,
		AuthService:        authService,
		SessionManager:     sessions,
		AuthMiddleware:     auth.NewMiddleware(authService, sessions),
		AuthController:     authController,
		CSRFSecret:         csrfSecret,
		SecureCookies:      cfg.Auth.SecureCookies,
		TemplatesPath:      cfg.UI.TemplatesPath,
		StaticPath:         cfg.UI.StaticPath,
		UploadsDir:         files.Root(),
		MaxMultipartMemory: cfg.Uploads.MaxBytes,
		Version:            version,
	}

	// Background tasks are opt-in
	var taskClient *tasks.Client
	var enqueuer scheduler.Enqueuer
	taskCtx, cancelTasks := context.WithCancel(ctx)
	defer cancelTasks()
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks, cfg.Maintenance), log)
		if err != nil {
			return fmt.Errorf("initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Warn("error closing task client", zap.Error(err))
			}
		}()

		sweeper := maintenance.NewSweeper(booksRepo, pageRepo, files, maintenance.DefaultGrace, log.Named("sweeper"))
		taskClient.RegisterMaintenance(sweeper, auditService)
		taskClient.Start(taskCtx)

		routerCfg.TaskQueue = taskClient
		enqueuer = taskClient
	}

	maintenanceScheduler := scheduler.NewMaintenanceScheduler(cfg.Maintenance.Schedule, enqueuer,
		log.Named("scheduler"), authController.RateLimiter())
	if err := maintenanceScheduler.Start(taskCtx); err != nil {
		return err
	}

	router, err := http_controllers.NewRouter(routerCfg)
	if err != nil {
		return err
	}

	onShutdown := func(shutdownCtx context.Context) {
		maintenanceScheduler.Stop()
		if taskClient != nil {
			taskClient.Stop(shutdownCtx)
		}
		cancelTasks()
		auditService.Wait()
	}

	return Serve(ctx, router, cfg, log, onShutdown)
}

// sessionSecret decodes a hex secret, falls back to the raw bytes, and
// generates a random one when none is configured.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil && len(secret) >= 32 {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return secret, nil
}
