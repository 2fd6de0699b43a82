// cmd/server/main.go
// HTTP Server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"snowrail/internal/checks"
	"snowrail/internal/config"
	"snowrail/internal/handler"
	"snowrail/internal/ledger"
	"snowrail/internal/service"
	"snowrail/pkg/logger"
	"snowrail/pkg/middleware"
	"snowrail/pkg/redis"
)

func main() {
	// Initialize logger
	log := logger.NewLogger("snowrail")
	defer log.Sync()

	// Load configuration
	cfg := config.Load()

	// Register trust checks with their aggregation weights
	registry := checks.NewRegistry()
	registry.Register(checks.NewTLSCheck(), cfg.CheckWeights["tls"])
	registry.Register(checks.NewDNSCheck(), cfg.CheckWeights["dns"])
	registry.Register(checks.NewInfrastructureCheck(), cfg.CheckWeights["infrastructure"])
	registry.Register(checks.NewComplianceCheck(), cfg.CheckWeights["compliance"])

	// Validation cache: in-memory by default, redis when configured so
	// several instances can share decisions
	var cache service.CacheStore
	if cfg.RedisURL != "" {
		redisClient := redis.NewRedisClient(cfg.RedisURL)
		defer redisClient.Close()
		cache = service.NewRedisCacheStore(redisClient, cfg.CacheTTL, log)
		log.Info("using redis validation cache", zap.String("addr", cfg.RedisURL))
	} else {
		cache = service.NewMemoryCacheStore(cfg.CacheTTL, cfg.CacheCapacity)
	}

	// Initialize services
	engine := service.NewValidationEngine(cfg, registry, cache, log)
	facilitator := service.NewIntentFacilitator(cfg, log)
	executor := service.NewSettlementExecutor(cfg, ledger.NewClient(cfg.LedgerURL), log)

	// Initialize handlers
	validationHandler := handler.NewValidationHandler(engine, log)
	paymentHandler := handler.NewPaymentHandler(engine, facilitator, executor, log)

	// Setup router
	router := setupRouter(validationHandler, paymentHandler, cfg, log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func setupRouter(validation *handler.ValidationHandler, payments *handler.PaymentHandler, cfg *config.Config, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"treasury":  cfg.TreasuryAddress,
		})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/v1")
	{
		sentinel := v1.Group("/sentinel")
		{
			sentinel.POST("/validate", validation.Validate)
			sentinel.POST("/decide", validation.Decide)
		}

		x402 := v1.Group("/payments/x402")
		{
			x402.POST("/intent", payments.CreateIntent)
			x402.GET("/intent/:id", payments.GetIntent)
			x402.POST("/intent/:id/authorize", payments.BuildAuthorization)
			x402.POST("/intent/:id/confirm", payments.ConfirmReceipt)
			x402.POST("/settle", payments.Settle)
		}

		v1.POST("/payments/direct", payments.DirectTransfer)
	}

	return router
}
