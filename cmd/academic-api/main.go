package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/uniflow-academic-api/internal/handler"
	"github.com/noah-isme/uniflow-academic-api/internal/repository"
	"github.com/noah-isme/uniflow-academic-api/internal/service"
	"github.com/noah-isme/uniflow-academic-api/pkg/cache"
	"github.com/noah-isme/uniflow-academic-api/pkg/config"
	"github.com/noah-isme/uniflow-academic-api/pkg/database"
	"github.com/noah-isme/uniflow-academic-api/pkg/logger"
)

// @title Uniflow Academic API
// @version 1.0.0
// @description Academic periods of Google-authenticated students
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	app := wire(cfg, logr, db, redisClient)
	defer app.cacheRepo.Close() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      newRouter(cfg, logr, app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logr.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

type application struct {
	metrics   *service.MetricsService
	cacheRepo *repository.CacheRepository
	db        *sqlx.DB
	periods   *service.PeriodService
	tokens    service.TokenValidator
}

func wire(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *application {
	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, "academic", logr)
	statsCache := service.NewCacheService(cacheRepo, metrics, cfg.Statistics.CacheTTL, logr, redisClient != nil && cfg.Statistics.CacheEnabled)
	authCache := service.NewCacheService(cacheRepo, metrics, cfg.Auth.CacheTTL, logr, redisClient != nil)

	subjects := repository.NewSubjectRepository(db)
	periodRepo := repository.NewPeriodRepository(db, subjects, metrics)
	tx := database.NewTransactor(db, cfg.Database.TxTimeout)

	activator := service.NewPeriodActivator(periodRepo, tx, nil, logr)
	queries := service.NewPeriodQueryService(periodRepo, statsCache, cfg.Statistics.CacheTTL, nil, logr)
	periods := service.NewPeriodService(periodRepo, tx, activator, queries, validate, metrics, nil, logr)

	var tokens service.TokenValidator
	switch cfg.Auth.Provider {
	case config.AuthProviderJWT:
		tokens = service.NewJWTTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, metrics)
	default:
		tokens = service.NewGoogleTokenValidator(cfg.Auth.TokenInfoURL, cfg.Auth.Audience, cfg.Auth.RequestTimeout, metrics, logr)
	}
	tokens = service.NewCachedTokenValidator(tokens, authCache, cfg.Auth.CacheTTL)

	return &application{
		metrics:   metrics,
		cacheRepo: cacheRepo,
		db:        db,
		periods:   periods,
		tokens:    tokens,
	}
}

// readinessPinger maps a nil handle to a nil Pinger.
func readinessPinger(db *sqlx.DB) handler.Pinger {
	if db == nil {
		return nil
	}
	return db
}
