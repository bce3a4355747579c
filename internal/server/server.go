package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/config"
	"github.com/nanogate/imagegate/internal/dispatch"
	"github.com/nanogate/imagegate/internal/handler"
	"github.com/nanogate/imagegate/internal/healthcheck"
	"github.com/nanogate/imagegate/internal/middleware"
	"github.com/nanogate/imagegate/internal/quota"
	"github.com/nanogate/imagegate/internal/repository"
	"github.com/nanogate/imagegate/internal/service"
	"github.com/nanogate/imagegate/internal/storage"
)

type Server struct {
	router          *gin.Engine
	config          *config.Manager
	redis           *storage.RedisClient
	postgres        *storage.Postgres
	prober          *healthcheck.Prober
	authService     *service.AuthService
	accountService  *service.AccountService
	authHandler     *handler.AuthHandler
	accountHandler  *handler.AccountHandler
	generateHandler *handler.GenerateHandler
	adminHandler    *handler.AdminHandler
	httpServer      *http.Server
}

func New(cfg *config.Manager, redis *storage.RedisClient, postgres *storage.Postgres) *Server {
	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	accountRepo := repository.NewAccountRepository(postgres)
	usageLogRepo := repository.NewUsageLogRepository(postgres)
	generationRepo := repository.NewGenerationRepository(postgres)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-change-me"
		log.Println("Warning: JWT_SECRET not set, using insecure default")
	}

	authService := service.NewAuthService(accountRepo, jwtSecret, 72)
	accountService := service.NewAccountService(accountRepo, redis)

	failover := dispatch.NewFailover(dispatch.NewHTTPExecutor())
	dispatcher := dispatch.NewDispatcher(cfg, failover)

	ledger := quota.NewLedger(accountRepo)
	gate := quota.NewRateGate(usageLogRepo)

	generationService := service.NewGenerationService(dispatcher, ledger, gate, generationRepo, func() string {
		return cfg.Snapshot().API.Model
	})
	generationService.OnCharged(func(ctx context.Context, accountID uuid.UUID) {
		accountService.InvalidateCache(ctx, accountID)
	})

	prober := healthcheck.NewProber(&healthcheck.Config{
		BaseURL: func() string {
			return cfg.Snapshot().API.BaseURL
		},
	})

	s := &Server{
		router:          router,
		config:          cfg,
		redis:           redis,
		postgres:        postgres,
		prober:          prober,
		authService:     authService,
		accountService:  accountService,
		authHandler:     handler.NewAuthHandler(authService),
		accountHandler:  handler.NewAccountHandler(accountService),
		generateHandler: handler.NewGenerateHandler(generationService, dispatcher, ledger, gate),
		adminHandler:    handler.NewAdminHandler(accountService, usageLogRepo, generationRepo, cfg),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ProviderKey())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	auth := s.router.Group("/api/auth")
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
	}

	api := s.router.Group("/api")
	api.Use(middleware.OptionalAuth(s.authService))
	{
		api.POST("/generate", s.generateHandler.Generate)
		api.POST("/optimize", s.generateHandler.Optimize)
		api.GET("/quota", s.generateHandler.Quota)
		api.GET("/me", s.accountHandler.Me)
	}

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(s.authService))
	{
		admin.GET("/users", s.adminHandler.ListUsers)
		admin.PUT("/users/:id", s.adminHandler.UpdateUser)
		admin.GET("/generations", s.adminHandler.RecentGenerations)
		admin.GET("/stats", s.adminHandler.Stats)
		admin.GET("/config", s.adminHandler.GetConfig)
		admin.PUT("/config", s.adminHandler.UpdateConfig)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if s.redis != nil {
		if err := s.redis.Ping(c.Request.Context()); err != nil {
			redisHealthy = false
			log.Printf("Redis health check failed: %v", err)
		}
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	providerStatus := s.prober.Status()

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "imagegate",
		"version":   "1.0.0",
		"uptime":    time.Since(startTime).Seconds(),
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
			"provider": providerStatus.Reachable,
		},
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.prober.Start()

	log.Printf("Starting image gateway on %s", addr)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	s.prober.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
