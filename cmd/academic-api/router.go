package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uniflow-academic-api/api/swagger"
	"github.com/noah-isme/uniflow-academic-api/internal/handler"
	"github.com/noah-isme/uniflow-academic-api/internal/middleware"
	"github.com/noah-isme/uniflow-academic-api/pkg/config"
	"github.com/noah-isme/uniflow-academic-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uniflow-academic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uniflow-academic-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, logr *zap.Logger, app *application) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(app.metrics))

	ops := handler.NewMetricsHandler(app.metrics, readinessPinger(app.db), logr)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Authenticate(app.tokens))
	handler.NewPeriodHandler(app.periods).Register(api)

	return r
}
