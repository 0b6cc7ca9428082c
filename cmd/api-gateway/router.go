package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/noah-isme/learner-records-api/internal/handler"
	internalmiddleware "github.com/noah-isme/learner-records-api/internal/middleware"
	"github.com/noah-isme/learner-records-api/internal/repository"
	"github.com/noah-isme/learner-records-api/internal/service"
	"github.com/noah-isme/learner-records-api/pkg/config"
	"github.com/noah-isme/learner-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/learner-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/learner-records-api/pkg/middleware/requestid"
)

// newRouter wires repositories, services and handlers onto a gin engine.
func newRouter(cfg *config.Config, db *sqlx.DB, logr *zap.Logger) *gin.Engine {
	metricsSvc := service.NewMetricsService()
	learnerRepo := repository.NewLearnerRepository(db, metricsSvc)
	learnerSvc := service.NewLearnerService(learnerRepo, logr, service.WithLearnerMetrics(metricsSvc))
	exportSvc := service.NewLearnerExportService(learnerSvc, logr, nil, nil)

	learnerHandler := handler.NewLearnerHandler(learnerSvc, exportSvc, validator.New())
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = "learner-records-api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/exception", learnerHandler.Retired)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	learners := api.Group("/learners")
	learners.GET("", learnerHandler.List)
	learners.GET("/export", learnerHandler.Export)
	learners.GET("/:id", learnerHandler.Get)
	learners.POST("", learnerHandler.Register)
	learners.POST("/search", learnerHandler.Search)
	learners.PUT("", learnerHandler.Update)

	return r
}
