package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"resultsink/internal/config"
	"resultsink/internal/constants"
	"resultsink/internal/logger"
	"resultsink/internal/resultsdb"
	"resultsink/internal/updater"
	"resultsink/pkg/bootstrap"
	"resultsink/pkg/health"
	"resultsink/pkg/logging"
	"resultsink/pkg/metrics"
	"resultsink/pkg/middleware"
	"resultsink/pkg/ratelimit"
)

const serviceName = "updater-service"

type App struct {
	*bootstrap.Base
	client    *resultsdb.Client
	service   *updater.Service
	server    *http.Server
	router    *gin.Engine
	startedAt time.Time
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:      bootstrap.NewBase(cfg, log),
		startedAt: time.Now(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := config.ValidateStatic(a.Config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := bootstrap.NewResultsDBClient(a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.client = client

	svc, err := updater.NewService(client, a.Config.Updater, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create updater service: %w", err)
	}
	a.service = svc

	if err := a.InitConsumers(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	metrics.RegisterUpdaterMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}
	metrics.RegisterServerMetrics()

	a.initRouter()
	a.initServer()

	return nil
}

func (a *App) initRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.Updater.RateLimit.RPS > 0 {
		rateLimitConfig := ratelimit.DefaultConfig()
		rateLimitConfig.RPS = a.Config.Updater.RateLimit.RPS
		if a.Config.Updater.RateLimit.Burst > 0 {
			rateLimitConfig.Burst = a.Config.Updater.RateLimit.Burst
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
	}

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewResultsDBChecker(a.client))
	healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":        serviceName,
			"uptime_seconds": int(time.Since(a.startedAt).Seconds()),
			"topics":         a.Config.Broker.Kafka.Topics,
			"resultsdb_url":  a.Config.ResultsDB.APIURL,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
}

func (a *App) initServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	for i, topic := range a.Config.Broker.Kafka.Topics {
		consumer := a.Consumers[i]
		topic := topic
		g.Go(func() error {
			return consumer.Consume(gCtx, topic, a.service.Handle)
		})
	}

	<-gCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Errorw("HTTP server shutdown error", "error", err)
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down updater service")

	return a.Base.Shutdown(ctx, nil)
}
