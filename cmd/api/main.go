package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shiptrack-platform/tracking-service/internal/application"
	"github.com/shiptrack-platform/tracking-service/internal/domain"
	mongoRepo "github.com/shiptrack-platform/tracking-service/internal/infrastructure/mongodb"
	"github.com/shiptrack-platform/tracking-service/pkg/api"
	"github.com/shiptrack-platform/tracking-service/pkg/kafka"
	"github.com/shiptrack-platform/tracking-service/pkg/logging"
	"github.com/shiptrack-platform/tracking-service/pkg/metrics"
	"github.com/shiptrack-platform/tracking-service/pkg/middleware"
	"github.com/shiptrack-platform/tracking-service/pkg/mongodb"
	"github.com/shiptrack-platform/tracking-service/pkg/outbox"
	"github.com/shiptrack-platform/tracking-service/pkg/tracing"
)

const serviceName = "tracking-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting tracking-service API")

	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)

	// The primary customer group is fixed for the process lifetime. After
	// changing it, affected shipments must be recalculated explicitly via
	// the recalculate endpoint.
	classifier := domain.NewCustomerClassifier(config.PrimaryCustomerGroup)
	logger.Info("Customer classifier configured", "primaryGroup", config.PrimaryCustomerGroup)

	formats, err := domain.ParseFormatCatalog(config.ServiceFormats)
	if err != nil {
		logger.WithError(err).Error("Invalid SERVICE_FORMATS configuration")
		os.Exit(1)
	}
	logger.Info("Format catalog loaded", "services", formats.Services())

	// Initialize MongoDB behind a circuit breaker
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	guardedMongo := mongodb.NewGuardedClient(mongoClient, logger.Logger)
	defer guardedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize repositories and the aggregation engine
	shipmentRepo := mongoRepo.NewShipmentRepository(guardedMongo.Database())
	detailRepo := mongoRepo.NewDetailRepository(guardedMongo.Database())
	recalculator := mongoRepo.NewTotalsRecalculator(guardedMongo, classifier, logger, m)

	// Start the outbox publisher
	outboxPublisher := outbox.NewPublisher(
		shipmentRepo.GetOutboxRepository(),
		kafkaProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			Source:       serviceName,
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	trackingService := application.NewTrackingService(
		shipmentRepo,
		detailRepo,
		recalculator,
		formats,
		logger,
		m,
	)

	// Setup Gin router with middleware
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return guardedMongo.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes
	shipments := router.Group("/api/v1/shipments")
	{
		shipments.POST("", createShipmentHandler(trackingService, logger))
		shipments.GET("", listShipmentsHandler(trackingService, logger))
		shipments.GET("/:shipmentId", getShipmentHandler(trackingService, logger))
		shipments.DELETE("/:shipmentId", deleteShipmentHandler(trackingService, logger))
		shipments.POST("/:shipmentId/recalculate", recalculateHandler(trackingService, logger))
		shipments.POST("/:shipmentId/details", addDetailHandler(trackingService, logger))
		shipments.GET("/:shipmentId/details", listDetailsHandler(trackingService, logger))
		shipments.POST("/:shipmentId/details/batch-delete", batchDeleteDetailsHandler(trackingService, logger))
		shipments.DELETE("/:shipmentId/details/:detailId", deleteDetailHandler(trackingService, logger))
	}
	details := router.Group("/api/v1/details")
	{
		details.PATCH("/:detailId", updateDetailHandler(trackingService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr           string
	PrimaryCustomerGroup string
	ServiceFormats       string
	MongoDB              *mongodb.Config
	Kafka                *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:           getEnv("SERVER_ADDR", ":8012"),
		PrimaryCustomerGroup: getEnv("PRIMARY_CUSTOMER_GROUP", ""),
		ServiceFormats:       getEnv("SERVICE_FORMATS", ""),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "tracking"),
			ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTP Handlers

func createShipmentHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ShipmentID      string `json:"shipmentId" binding:"required"`
			Reference       string `json:"reference" binding:"required"`
			CarrierCode     string `json:"carrierCode" binding:"required"`
			OriginCode      string `json:"originCode"`
			DestinationCode string `json:"destinationCode"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id": req.ShipmentID,
		})

		cmd := application.CreateShipmentCommand{
			ShipmentID:      req.ShipmentID,
			Reference:       req.Reference,
			CarrierCode:     req.CarrierCode,
			OriginCode:      req.OriginCode,
			DestinationCode: req.DestinationCode,
		}

		shipment, err := service.CreateShipment(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, shipment)
	}
}

func listShipmentsHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

		shipments, err := service.ListShipments(c.Request.Context(), application.ListShipmentsQuery{Limit: limit})
		if err != nil {
			responder.RespondInternalError(err)
			return
		}

		c.JSON(http.StatusOK, shipments)
	}
}

func getShipmentHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetShipmentQuery{ShipmentID: c.Param("shipmentId")}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id": query.ShipmentID,
		})

		shipment, err := service.GetShipment(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, shipment)
	}
}

func deleteShipmentHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		shipmentID := c.Param("shipmentId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id": shipmentID,
		})

		if err := service.DeleteShipment(c.Request.Context(), shipmentID); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func recalculateHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		shipmentID := c.Param("shipmentId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id": shipmentID,
		})

		totals, err := service.ForceRecalculate(c.Request.Context(), shipmentID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, totals)
	}
}

func addDetailHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		shipmentID := c.Param("shipmentId")

		var req struct {
			Pallets     int     `json:"pallets" binding:"min=0"`
			Bags        int     `json:"bags" binding:"min=0"`
			GrossWeight float64 `json:"grossWeight" binding:"min=0"`
			TareWeight  float64 `json:"tareWeight" binding:"min=0"`
			CustomerID  string  `json:"customerId" binding:"required"`
			ServiceID   string  `json:"serviceId"`
			FormatID    string  `json:"formatId"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id": shipmentID,
			"customer.id": req.CustomerID,
		})

		cmd := application.AddDetailCommand{
			ShipmentID:  shipmentID,
			Pallets:     req.Pallets,
			Bags:        req.Bags,
			GrossWeight: req.GrossWeight,
			TareWeight:  req.TareWeight,
			CustomerID:  req.CustomerID,
			ServiceID:   req.ServiceID,
			FormatID:    req.FormatID,
		}

		result, err := service.AddDetail(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func listDetailsHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ListDetailsQuery{ShipmentID: c.Param("shipmentId")}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id": query.ShipmentID,
		})

		details, err := service.ListShipmentDetails(c.Request.Context(), query)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, details)
	}
}

func updateDetailHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		detailID := c.Param("detailId")

		var req struct {
			Pallets     *int     `json:"pallets"`
			Bags        *int     `json:"bags"`
			GrossWeight *float64 `json:"grossWeight"`
			TareWeight  *float64 `json:"tareWeight"`
			CustomerID  *string  `json:"customerId"`
			ServiceID   *string  `json:"serviceId"`
			FormatID    *string  `json:"formatId"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"detail.id": detailID,
		})

		cmd := application.UpdateDetailCommand{
			DetailID:    detailID,
			Pallets:     req.Pallets,
			Bags:        req.Bags,
			GrossWeight: req.GrossWeight,
			TareWeight:  req.TareWeight,
			CustomerID:  req.CustomerID,
			ServiceID:   req.ServiceID,
			FormatID:    req.FormatID,
		}

		result, err := service.UpdateDetail(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func deleteDetailHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		cmd := application.DeleteDetailCommand{
			ShipmentID: c.Param("shipmentId"),
			DetailID:   c.Param("detailId"),
		}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id": cmd.ShipmentID,
			"detail.id":   cmd.DetailID,
		})

		result, err := service.DeleteDetail(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func batchDeleteDetailsHandler(service *application.TrackingService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		shipmentID := c.Param("shipmentId")

		var req struct {
			DetailIDs []string `json:"detailIds" binding:"required,min=1"`
		}
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"shipment.id":  shipmentID,
			"detail.count": len(req.DetailIDs),
		})

		cmd := application.BatchDeleteDetailsCommand{
			ShipmentID: shipmentID,
			DetailIDs:  req.DetailIDs,
		}

		result, err := service.BatchDeleteDetails(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
