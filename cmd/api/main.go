package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	"github.com/roouty-platform/dynamic-engine/internal/infrastructure/clients"
	kafkaAdapter "github.com/roouty-platform/dynamic-engine/internal/infrastructure/kafka"
	"github.com/roouty-platform/dynamic-engine/internal/planner"
	"github.com/roouty-platform/dynamic-engine/pkg/errors"
	"github.com/roouty-platform/dynamic-engine/pkg/kafka"
	"github.com/roouty-platform/dynamic-engine/pkg/logging"
	"github.com/roouty-platform/dynamic-engine/pkg/metrics"
	"github.com/roouty-platform/dynamic-engine/pkg/middleware"
)

const serviceName = "dynamic-engine"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting dynamic-engine API")

	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	solverClient := clients.NewSolverClient(clients.SolverClientConfig{
		BaseURL: config.SolverURL,
	}, logger, m)
	logger.Info("Solver client initialized", "url", config.SolverURL)

	routingClient := clients.NewRoutingClient(clients.RoutingClientConfig{
		URLs: map[domain.Profile]string{
			domain.ProfileCar:   config.RoutingCarURL,
			domain.ProfileAtlan: config.RoutingAtlanURL,
		},
	}, logger, m)
	logger.Info("Routing client initialized",
		"car", config.RoutingCarURL, "atlan", config.RoutingAtlanURL)

	var eventPublisher *kafkaAdapter.EventPublisher
	if config.KafkaEnabled {
		producer := kafka.NewProducer(kafka.DefaultConfig(serviceName, config.KafkaBrokers))
		eventPublisher = kafkaAdapter.NewEventPublisher(producer, logger)
		defer eventPublisher.Close()
		logger.Info("Event publisher initialized", "brokers", config.KafkaBrokers)
	} else {
		logger.Info("Event publishing disabled")
	}

	planService := planner.NewService(solverClient, routingClient, config.Version, logger, m)

	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return nil
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	router.GET("/version", versionHandler(config.Version))

	v1 := router.Group("/v1")
	{
		v1.POST("/jeju_onul", planHandler(planService, eventPublisher, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: config.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr, "version", config.Version)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	Version         string
	SolverURL       string
	RoutingCarURL   string
	RoutingAtlanURL string
	KafkaEnabled    bool
	KafkaBrokers    []string
	WriteTimeout    time.Duration
}

func loadConfig() (*Config, error) {
	version := os.Getenv("VERSION")
	if version == "" {
		return nil, errors.ErrValidation(`environment variable "VERSION" not found`)
	}

	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8000"),
		Version:         version,
		SolverURL:       getEnv("VROOUTY_URL", "http://localhost:3000"),
		RoutingCarURL:   getEnv("OSRM_JEJU_URL", "http://localhost:5000"),
		RoutingAtlanURL: getEnv("ATLAN_WRAPPER_URL", "http://localhost:5001"),
		KafkaEnabled:    getEnv("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:    []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
		// a full planning run makes many solver round trips
		WriteTimeout: parseDuration(getEnv("WRITE_TIMEOUT", "30m")),
	}, nil
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTP Handlers

func versionHandler(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, version)
	}
}

func planHandler(service *planner.Service, publisher *kafkaAdapter.EventPublisher, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req domain.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := service.PlanDay(c.Request.Context(), &req)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}

		publisher.PublishPlanCreated(c.Request.Context(), &req, resp)

		c.JSON(http.StatusOK, resp)
	}
}
