package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/config"
	"cosmicwatch/internal/handlers"
	"cosmicwatch/internal/middleware"
	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/repository"
	"cosmicwatch/internal/service"
	"cosmicwatch/internal/worker"
	"cosmicwatch/pkg/database"
	"cosmicwatch/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("=== Cosmic Watch Backend Starting ===")

	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	redisClient, err := redis.Connect(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	if err := os.MkdirAll(cfg.Reports.OutputDir, 0o755); err != nil {
		log.Fatal("Failed to create reports directory:", err)
	}

	// Repositories
	asteroidRepo := repository.NewAsteroidRepository(db)
	apiCacheRepo := repository.NewAPICacheRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	neoClient := clients.NewNEOClient(clients.NEOConfig{
		APIKey:  cfg.NASA.APIKey,
		BaseURL: cfg.NASA.BaseURL,
		Timeout: cfg.NASA.Timeout,
	})

	metrics := observability.NewMetrics()

	// Services
	neoService := service.NewNEOService(asteroidRepo, apiCacheRepo, cacheRepo, neoClient, metrics, service.NEOServiceConfig{
		CacheTTL:  cfg.NASA.CacheTTL,
		ReportDir: cfg.Reports.OutputDir,
	})
	alertService := service.NewAlertService(alertRepo, watchlistRepo, asteroidRepo, metrics)
	watchlistService := service.NewWatchlistService(watchlistRepo, asteroidRepo, userRepo)

	// Background workers
	scheduler := worker.NewScheduler()

	if cfg.Workers.NEOEnabled {
		scheduler.AddWorker(worker.NewNEOWorker(neoService, metrics, cfg.Workers.NEOInterval, cfg.Workers.SyncDaysAhead))
		log.Printf("NEO Worker enabled (interval: %v)", cfg.Workers.NEOInterval)
	}

	if cfg.Workers.AlertEnabled {
		scheduler.AddWorker(worker.NewAlertWorker(alertService, watchlistRepo, metrics, cfg.Workers.AlertInterval))
		log.Printf("Alert Worker enabled (interval: %v)", cfg.Workers.AlertInterval)
	}

	if cfg.Workers.CleanupEnabled {
		scheduler.AddWorker(worker.NewCleanupWorker(apiCacheRepo, metrics, cfg.Workers.CleanupInterval))
		log.Printf("Cleanup Worker enabled (interval: %v)", cfg.Workers.CleanupInterval)
	}

	go scheduler.Start()
	defer scheduler.Stop()

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		log.Println("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if !cfg.App.Debug {
		if cfg.RateLimit.PerIP {
			ipLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
			r.Use(middleware.IPRateLimitMiddleware(ipLimiter))
			log.Printf("Per-IP rate limiting enabled: %d req/sec, burst: %d",
				cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		} else {
			limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
			r.Use(middleware.RateLimitMiddleware(limiter))
			log.Printf("Rate limiting enabled: %d req/sec, burst: %d",
				cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		}
	}

	neoHandler := handlers.NewNEOHandler(neoService)
	watchlistHandler := handlers.NewWatchlistHandler(watchlistService)
	alertHandler := handlers.NewAlertHandler(alertService)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// NEO feed and risk surfaces
	api.GET("/neo/feed", neoHandler.GetFeed)
	api.GET("/neo/today", neoHandler.GetToday)
	api.GET("/neo/search", neoHandler.Search)
	api.GET("/neo/threats/72h", neoHandler.GetNext72hThreats)
	api.GET("/neo/report", neoHandler.ExportReport)
	api.GET("/neo/:id", neoHandler.GetAsteroid)
	api.POST("/neo/sync", neoHandler.SyncFeed)
	api.POST("/neo/sync/:neo_id", neoHandler.SyncAsteroid)

	// Watchlist
	api.GET("/watchlist", watchlistHandler.List)
	api.POST("/watchlist", watchlistHandler.Add)
	api.GET("/watchlist/:asteroid_id/status", watchlistHandler.Status)
	api.PUT("/watchlist/:asteroid_id", watchlistHandler.Update)
	api.DELETE("/watchlist/:asteroid_id", watchlistHandler.Remove)

	// Alerts
	api.GET("/alerts", alertHandler.List)
	api.GET("/alerts/stats", alertHandler.Stats)
	api.POST("/alerts/check", alertHandler.CheckNow)
	api.PUT("/alerts/:id/read", alertHandler.MarkRead)
	api.DELETE("/alerts/:id", alertHandler.Delete)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"database": "connected",
				"redis":    "connected",
				"nasa_api": "enabled",
			},
		})
	})

	api.GET("/system/stats", func(c *gin.Context) {
		ctx := c.Request.Context()

		redisStats, _ := redis.GetStats(redisClient)
		asteroidCount, _ := asteroidRepo.Count(ctx)

		c.JSON(200, gin.H{
			"database": gin.H{
				"asteroids": asteroidCount,
			},
			"redis": redisStats,
			"workers": gin.H{
				"neo_enabled":     cfg.Workers.NEOEnabled,
				"alert_enabled":   cfg.Workers.AlertEnabled,
				"cleanup_enabled": cfg.Workers.CleanupEnabled,
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.App.Port)
		log.Printf("API available at http://localhost:%s/api/v1", cfg.App.Port)
		log.Printf("Health check: http://localhost:%s/api/v1/health", cfg.App.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited properly")
}
