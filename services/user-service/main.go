package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	awspkg "github.com/shopswift/storefront/pkg/aws"
	"github.com/shopswift/storefront/services/common/auth"
	"github.com/shopswift/storefront/services/common/config"
	"github.com/shopswift/storefront/services/common/database"
	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/common/logger"
	"github.com/shopswift/storefront/services/common/middleware"
	"github.com/shopswift/storefront/services/common/server"
	"github.com/shopswift/storefront/services/common/users"
	"github.com/shopswift/storefront/services/common/validation"
	"github.com/shopswift/storefront/services/user-service/controllers"
	"github.com/shopswift/storefront/services/user-service/routes"
	"github.com/shopswift/storefront/services/user-service/services"
)

const serviceName = "user-service"

func openUsers(ctx context.Context, cfg *Config, log *zap.Logger) (users.Repository, func(), error) {
	if cfg.Store == storePostgres {
		db, err := database.OpenPostgres(cfg.Postgres, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to Postgres", zap.String("host", cfg.Postgres.Host))
		return users.NewGormRepository(db), func() { _ = database.ClosePostgres(db) }, nil
	}

	m, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to MongoDB", zap.String("db", cfg.MongoDB))
	return users.NewMongoRepository(m.DB), func() { _ = m.Close() }, nil
}

func main() {
	ctx := context.Background()
	_ = config.LoadDotEnv()

	env := config.GetEnv("APP_ENV", "development")
	log, err := logger.New(env)
	if cwLogs, cwErr := awspkg.NewCloudWatchLogsClient(ctx, serviceName); cwErr == nil && cwLogs.IsEnabled() {
		log, err = logger.NewWithWriter(env, cwLogs)
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := validation.Register(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	secrets, err := config.SecretsFromAWS(ctx)
	if err != nil {
		log.Fatal("Failed to init Secrets Manager", zap.Error(err))
	}
	cfg, err := LoadConfig(ctx, secrets)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	repo, closeStore, err := openUsers(ctx, cfg, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer closeStore()

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		log.Fatal("Failed to init token service", zap.Error(err))
	}

	metricsClient, err := awspkg.NewMetricsClient(ctx)
	if err != nil {
		log.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var cloud services.CountRecorder
	var recorder middleware.MetricsRecorder
	if metricsClient != nil {
		cloud, recorder = metricsClient, metricsClient
	}

	opts := []services.Option{services.WithMetrics(services.NewAccountMetrics(reg, cloud, serviceName))}
	var guardOpts []identity.Option
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		denylist := auth.NewDenylist(rdb)
		opts = append(opts, services.WithRevoker(denylist))
		guardOpts = append(guardOpts, identity.WithRevocation(denylist))
	}

	userService := services.NewUserService(repo, tokens, log, opts...)
	guard := identity.NewGuard(tokens, repo, log, guardOpts...)

	stop := make(chan struct{})
	defer close(stop)

	r := server.NewRouterWithRegistry(server.Options{
		Service:        serviceName,
		Logger:         log,
		Origins:        middleware.ParseOrigins(cfg.AllowedOrigins),
		CloudWatch:     recorder,
		RequestTimeout: cfg.RequestTimeout,
		Stop:           stop,
	}, reg)
	routes.RegisterUserRoutes(r, controllers.NewUserController(userService, cfg.SecureCookies()), guard)

	if err := server.Run(":"+cfg.Port, r, log, 5*time.Second); err != nil {
		log.Error("Server error", zap.Error(err))
	}
}
