package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lpai/backend/internal/application/onboarding"
	appsync "github.com/lpai/backend/internal/application/sync"
	"github.com/lpai/backend/internal/infrastructure/auth"
	"github.com/lpai/backend/internal/infrastructure/config"
	"github.com/lpai/backend/internal/infrastructure/crmapi"
	"github.com/lpai/backend/internal/infrastructure/lock"
	"github.com/lpai/backend/internal/infrastructure/logger"
	"github.com/lpai/backend/internal/infrastructure/notify"
	"github.com/lpai/backend/internal/infrastructure/persistence"
	"github.com/lpai/backend/internal/infrastructure/tasks"
	"github.com/lpai/backend/internal/interfaces/http/handler"
	"github.com/lpai/backend/internal/interfaces/http/middleware"
	"github.com/lpai/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CRM sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	installLock, err := lock.NewRedisInstallLock(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := installLock.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	log.Info("Redis connected")

	crmClient, err := crmapi.NewClient(&crmapi.Config{
		BaseURL:      cfg.CRM.BaseURL,
		ClientID:     cfg.CRM.ClientID,
		ClientSecret: cfg.CRM.ClientSecret,
		RedirectURL:  cfg.CRM.RedirectURL,
		APIVersion:   cfg.CRM.APIVersion,
		Timeout:      cfg.CRM.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to build CRM client", zap.Error(err))
	}

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	companyRepo := persistence.NewGormCompanyRepository(db.DB)
	contactRepo := persistence.NewGormContactRepository(db.DB)
	taskRepo := persistence.NewGormTaskRepository(db.DB)
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	appointmentRepo := persistence.NewGormAppointmentRepository(db.DB)
	conversationRepo := persistence.NewGormConversationRepository(db.DB)
	messageRepo := persistence.NewGormMessageRepository(db.DB)
	customFieldRepo := persistence.NewGormCustomFieldRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	resolver := persistence.NewContactResolver(contactRepo)

	// Token resolution and sync pipeline
	tokens := onboarding.NewTokenProvider(crmClient, tenantRepo, companyRepo,
		cfg.CRM.RefreshWindow, cfg.CRM.RederiveAge, log)

	syncers := []appsync.EntitySyncer{
		appsync.NewProfileSyncer(crmClient, tokens, tenantRepo),
		appsync.NewPipelinesSyncer(crmClient, tokens, tenantRepo),
		appsync.NewCalendarsSyncer(crmClient, tokens, tenantRepo),
		appsync.NewUsersSyncer(crmClient, tokens, tenantRepo),
		appsync.NewCustomFieldsSyncer(crmClient, tokens, tenantRepo, customFieldRepo, log),
		appsync.NewCustomValuesSyncer(crmClient, tokens, tenantRepo),
		appsync.NewTagsSyncer(crmClient, tokens, tenantRepo),
		appsync.NewContactSyncer(crmClient, tokens, tenantRepo, contactRepo, customFieldRepo, log),
		appsync.NewTaskSyncer(crmClient, tokens, tenantRepo, taskRepo, resolver, log),
		appsync.NewOpportunitySyncer(crmClient, tokens, tenantRepo, projectRepo, customFieldRepo, resolver, log),
		appsync.NewAppointmentSyncer(crmClient, tokens, tenantRepo, appointmentRepo, resolver,
			cfg.Sync.AppointmentsPast, cfg.Sync.AppointmentsAhead, log),
		appsync.NewConversationSyncer(crmClient, tokens, tenantRepo, conversationRepo, messageRepo, resolver, log),
		appsync.NewInvoiceSyncer(crmClient, tokens, tenantRepo, invoiceRepo, resolver, log),
	}

	driver := appsync.NewBatchDriver(cfg.Sync.FullSyncBatchSize, cfg.Sync.ThrottleAfter, cfg.Sync.ThrottleDelay, log)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, log)
	}

	orchestrator := onboarding.NewOrchestrator(tenantRepo, tokens, installLock, cfg.Lock.TTL,
		driver, syncers, cfg.Sync.PageSize, notifier, log)

	runner := tasks.NewRunner(cfg.Sync.DispatchWorkers, 64, 0, log)
	installService := onboarding.NewInstallService(crmClient, tenantRepo, companyRepo,
		installLock, cfg.Lock.TTL, orchestrator, runner, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		logger.GinMiddleware(log),
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Secure(),
		middleware.CORS(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	// Public routes: health and the OAuth callback. The CRM redirects the
	// installing user's browser to the callback, so it cannot be guarded.
	engine.GET("/health", healthHandler(db))
	handler.NewCallbackHandler(installService, log).RegisterRoutes(engine)

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithGroupMiddleware(middleware.JWTAuthMiddleware(jwtService, log)),
	)
	r.Register(handler.NewOnboardingHandler(orchestrator, tenantRepo, log))
	r.Register(handler.NewSystemHandler())
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight onboarding runs finish before the process exits.
	if err := runner.Shutdown(ctx); err != nil {
		log.Warn("Background runner did not drain in time", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// gormLogLevel maps the application log level onto gorm's logger levels
func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "warn", "warning":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// healthHandler reports liveness and database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
