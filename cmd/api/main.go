package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pipeflow/deal-todo-api/internal/config"
	"github.com/pipeflow/deal-todo-api/internal/database"
	"github.com/pipeflow/deal-todo-api/internal/handlers"
	"github.com/pipeflow/deal-todo-api/internal/middleware"
	"github.com/pipeflow/deal-todo-api/internal/services"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.App.Env == "test" {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize logger
	err = utils.InitLogger(&utils.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting deal todo API", utils.LogFields{
		"environment": cfg.App.Env,
		"port":        cfg.App.Port,
	})

	// Initialize database
	dbConn, err := database.Connect(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer dbConn.Close()

	db := dbConn.DB()

	// Run SQL migrations (schema + row-security policies)
	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	logger.Info("Database migrations completed successfully", nil)

	// Initialize Redis if configured; rate limiting falls back to per-instance
	// memory counters without it
	var redisClient database.RedisClient
	if cfg.Redis.URL != "" {
		redisClient, err = database.InitializeRedis(cfg.Redis)
		if err != nil {
			logger.Warn("Redis not available, continuing with in-memory rate limiting", utils.LogFields{
				"error": err.Error(),
			})
			redisClient = nil
		} else {
			logger.Info("Redis connected successfully", utils.LogFields{
				"url": cfg.Redis.URL,
			})
		}
	}

	// Initialize services
	container := initializeServices(cfg, dbConn)

	// Initialize handlers
	handlerContainer := initializeHandlers(cfg, db, container)

	// Initialize middleware
	middlewareContainer := initializeMiddleware(container)

	// Setup router
	var rawRedis *goredis.Client
	if redisClient != nil {
		rawRedis = redisClient.Client()
	}
	router := setupRouter(cfg, handlerContainer, middlewareContainer, rawRedis)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.App.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Setup graceful shutdown
	go func() {
		logger.Info("Server starting", utils.LogFields{
			"addr": srv.Addr,
		})

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", err)
	}

	logger.Info("Server stopped gracefully")
}

// ServiceContainer holds all initialized services
type ServiceContainer struct {
	JWTService          *services.JWTService
	EncryptionService   *services.EncryptionService
	CRMClient           services.CRMClient
	TenantService       *services.TenantService
	InstallationService *services.InstallationService
	TodoService         *services.TodoService
	OAuthConfig         config.OAuthConfig
}

// HandlerContainer holds all initialized handlers
type HandlerContainer struct {
	OAuthHandler  *handlers.OAuthHandler
	TodoHandler   *handlers.TodoHandler
	UserHandler   *handlers.UserHandler
	HealthHandler *handlers.HealthHandler
}

// MiddlewareContainer holds all initialized middleware
type MiddlewareContainer struct {
	JWTMiddleware *middleware.JWTMiddleware
}

func initializeServices(cfg *config.Config, db database.Database) *ServiceContainer {
	jwtService := services.NewJWTService(cfg.Security.SurfaceJWTSecret)
	encryptionService := services.NewEncryptionService(cfg.Security.EncryptionKey)
	crmClient := services.NewCRMClient(cfg.OAuth)

	sessions := database.NewSessionManager(db)
	tenantService := services.NewTenantService(sessions)
	installationService := services.NewInstallationService(sessions, crmClient, encryptionService)
	todoService := services.NewTodoService(sessions, tenantService)

	return &ServiceContainer{
		JWTService:          jwtService,
		EncryptionService:   encryptionService,
		CRMClient:           crmClient,
		TenantService:       tenantService,
		InstallationService: installationService,
		TodoService:         todoService,
		OAuthConfig:         cfg.OAuth,
	}
}

func initializeHandlers(cfg *config.Config, db *gorm.DB, container *ServiceContainer) *HandlerContainer {
	return &HandlerContainer{
		OAuthHandler:  handlers.NewOAuthHandler(container.InstallationService, container.CRMClient, container.OAuthConfig),
		TodoHandler:   handlers.NewTodoHandler(container.TodoService),
		UserHandler:   handlers.NewUserHandler(container.InstallationService),
		HealthHandler: handlers.NewHealthHandler(db, cfg.App.Env),
	}
}

func initializeMiddleware(container *ServiceContainer) *MiddlewareContainer {
	return &MiddlewareContainer{
		JWTMiddleware: middleware.NewJWTMiddleware(container.JWTService),
	}
}

func setupRouter(cfg *config.Config, h *HandlerContainer, m *MiddlewareContainer, redisClient *goredis.Client) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(utils.Raw()))
	router.Use(middleware.RateLimitMiddleware(cfg, redisClient))

	// Security middleware
	router.Use(func(c *gin.Context) {
		utils.SetSecurityHeaders(c)
		c.Next()
	})

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposeHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Health probes
	router.GET("/health", h.HealthHandler.Health)
	router.GET("/ready", h.HealthHandler.Readiness)
	router.GET("/live", h.HealthHandler.Liveness)

	// Installation lifecycle, called by the CRM platform
	router.GET("/callback", h.OAuthHandler.Callback)
	router.DELETE("/callback", h.OAuthHandler.Uninstall)

	// Panel surface, authenticated with the platform-signed surface token
	todo := router.Group("/todo/:userId/:companyId/:dealId")
	todo.Use(m.JWTMiddleware.SurfaceAuthRequired(), middleware.TenantContext())
	{
		todo.GET("", h.TodoHandler.List)
		todo.GET("/:recordId", h.TodoHandler.Get)
		todo.POST("", h.TodoHandler.Create)
		todo.PUT("", h.TodoHandler.Update)
		todo.DELETE("/:recordId", h.TodoHandler.Delete)
	}

	user := router.Group("/user/me/:userId/:companyId")
	user.Use(m.JWTMiddleware.SurfaceAuthRequired(), middleware.TenantContext())
	{
		user.GET("", h.UserHandler.Me)
	}

	return router
}
