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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"goldprice-api/internal/aggregator"
	"goldprice-api/internal/breaker"
	"goldprice-api/internal/cache"
	"goldprice-api/internal/config"
	"goldprice-api/internal/middleware"
	"goldprice-api/internal/monitoring"
	"goldprice-api/internal/providers/haremfree"
	"goldprice-api/internal/providers/rapidharem"
	"goldprice-api/internal/providers/tcmb"
	"goldprice-api/internal/repository"
	"goldprice-api/internal/usagelog"
	"goldprice-api/pkg/logger"
)

// Server holds all dependencies
type Server struct {
	router     *gin.Engine
	config     *config.Config
	logger     *logrus.Logger
	aggregator *aggregator.Aggregator
	margins    repository.MarginStore
	auth       *middleware.AuthMiddleware
	metrics    *monitoring.Metrics
}

func main() {
	// .env is optional, environment variables win
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(cfg.Logging)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var mongoDB *mongo.Database
	if cfg.Mongo.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err == nil {
			err = client.Ping(ctx, nil)
		}
		cancel()
		if err != nil {
			log.WithError(err).Warn("mongodb unavailable, using in-memory stores")
		} else {
			mongoDB = client.Database(cfg.Mongo.Database)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			}()
			log.WithField("database", cfg.Mongo.Database).Info("connected to mongodb")
		}
	}

	policy, err := buildPolicy(cfg.TTL)
	if err != nil {
		log.WithError(err).Fatal("invalid TTL configuration")
	}

	metrics := monitoring.NewMetrics()

	rates := tcmb.NewClient(&tcmb.Config{
		BaseURL: cfg.Providers.TCMB.BaseURL,
		Timeout: cfg.Providers.TCMB.Timeout,
	})
	primary := haremfree.NewClient(&haremfree.Config{
		BaseURL: cfg.Providers.HaremFree.BaseURL,
		Timeout: cfg.Providers.HaremFree.Timeout,
	})
	secondary := rapidharem.NewClient(&rapidharem.Config{
		BaseURL:   cfg.Providers.RapidHarem.BaseURL,
		Host:      cfg.Providers.RapidHarem.Host,
		APIKey:    cfg.Providers.RapidHarem.APIKey,
		RateLimit: cfg.Providers.RapidHarem.RateLimit,
		Timeout:   cfg.Providers.RapidHarem.Timeout,
		Rates:     rates,
	})

	usage := usagelog.Multi{
		usagelog.NewLogrusRecorder(log),
		monitoring.NewUsageRecorder(metrics),
	}
	margins := repository.MarginStore(repository.NewMemoryMarginStore())
	if mongoDB != nil {
		usage = append(usage, usagelog.NewMongoRecorder(mongoDB))
		margins = repository.NewMongoMarginStore(mongoDB)
	}

	agg := aggregator.New(primary, secondary, policy, log,
		aggregator.WithBreaker(breaker.New(cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown)),
		aggregator.WithUsageRecorder(usage),
		aggregator.WithObserver(metrics),
	)

	srv := &Server{
		router:     gin.New(),
		config:     cfg,
		logger:     log,
		aggregator: agg,
		margins:    margins,
		auth:       middleware.NewAuthMiddleware(cfg.Auth.JWTSecret),
		metrics:    metrics,
	}
	srv.setupRoutes()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":        addr,
			"environment": cfg.Environment,
		}).Info("goldprice-api starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exited")
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(s.metrics.HTTPMetrics())

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	api.Use(s.auth.JWTAuth())
	{
		api.GET("/prices", s.handleGetPrices)
		api.GET("/prices/raw", s.handleGetRawPrices)
		api.GET("/prices/status", s.handleStatus)
		api.GET("/margins", s.handleGetMargins)
		api.POST("/prices/refresh",
			s.auth.RequireRole(middleware.RoleSuperAdmin), s.handleForceRefresh)
		api.POST("/margins",
			s.auth.RequireRole(middleware.RoleAdmin, middleware.RoleSuperAdmin), s.handleUpdateMargins)
	}
}

// buildPolicy assembles the cache TTL policy from configuration.
func buildPolicy(cfg config.TTLConfig) (cache.Policy, error) {
	if cfg.Mode == "fixed" {
		return cache.FixedPolicy{Primary: cfg.Primary, Secondary: cfg.Secondary}, nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	weekday, err := cache.ParseWindow(cfg.WeekdayWindow)
	if err != nil {
		return nil, fmt.Errorf("parse weekday window: %w", err)
	}
	saturday, err := cache.ParseWindow(cfg.SaturdayWindow)
	if err != nil {
		return nil, fmt.Errorf("parse saturday window: %w", err)
	}

	return cache.MarketHoursPolicy{
		Location:  loc,
		Primary:   cfg.Primary,
		Secondary: cfg.Secondary,
		OffHours:  cfg.OffHours,
		RestDay:   time.Sunday,
		Weekday:   weekday,
		Saturday:  saturday,
	}, nil
}
