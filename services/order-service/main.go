package main

import (
	"context"
	"net/http"
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
	"github.com/shopswift/storefront/services/order-service/controllers"
	"github.com/shopswift/storefront/services/order-service/kafka"
	"github.com/shopswift/storefront/services/order-service/repository"
	"github.com/shopswift/storefront/services/order-service/routes"
	"github.com/shopswift/storefront/services/order-service/services"
)

const serviceName = "order-service"

// stores groups the adapters for the configured driver.
type stores struct {
	orders  repository.OrderRepository
	users   users.Repository
	catalog services.CatalogLookup
	close   func()
}

func openStores(ctx context.Context, cfg *Config, log *zap.Logger) (*stores, error) {
	switch cfg.Store {
	case storePostgres:
		db, err := database.OpenPostgres(cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		log.Info("connected to Postgres", zap.String("host", cfg.Postgres.Host), zap.String("db", cfg.Postgres.DBName))
		return &stores{
			orders:  repository.NewGormOrderRepository(db),
			users:   users.NewGormRepository(db),
			catalog: repository.NewGormCatalogRepository(db),
			close: func() {
				if err := database.ClosePostgres(db); err != nil {
					log.Warn("closing Postgres", zap.Error(err))
				}
			},
		}, nil
	default:
		m, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		log.Info("connected to MongoDB", zap.String("db", cfg.MongoDB))
		return &stores{
			orders:  repository.NewMongoOrderRepository(m.DB),
			users:   users.NewMongoRepository(m.DB),
			catalog: repository.NewMongoCatalogRepository(m.DB),
			close: func() {
				if err := m.Close(); err != nil {
					log.Warn("closing MongoDB", zap.Error(err))
				}
			},
		}, nil
	}
}

// newLogger tees to CloudWatch Logs when it is enabled and reachable.
func newLogger(ctx context.Context) (*zap.Logger, error) {
	env := config.GetEnv("APP_ENV", "development")
	cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, serviceName)
	if err != nil || !cwLogs.IsEnabled() {
		return logger.New(env)
	}
	return logger.NewWithWriter(env, cwLogs)
}

func main() {
	ctx := context.Background()
	_ = config.LoadDotEnv()

	log, err := newLogger(ctx)
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

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer st.close()

	catalog := st.catalog
	if cfg.CatalogSource == catalogHTTP {
		catalog = services.NewHTTPCatalog(cfg.ProductServiceURL, &http.Client{Timeout: 5 * time.Second}, log)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		log.Fatal("Failed to init token service", zap.Error(err))
	}
	var guardOpts []identity.Option
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		guardOpts = append(guardOpts, identity.WithRevocation(auth.NewDenylist(rdb)))
	}
	guard := identity.NewGuard(tokens, st.users, log, guardOpts...)

	metricsClient, err := awspkg.NewMetricsClient(ctx)
	if err != nil {
		log.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	var sinks []services.EventSink
	if cfg.SNSTopicArn != "" {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Warn("SNS disabled, AWS config failed", zap.Error(err))
		} else {
			sinks = append(sinks, services.EventSink{Name: "sns", Topic: cfg.SNSTopicArn, Publisher: awspkg.NewSNSClient(awsCfg)})
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, log)
		defer producer.Close()
		sinks = append(sinks, services.EventSink{Name: "kafka", Topic: cfg.EventsTopic, Publisher: producer})
	}
	notifier := services.NewEventNotifier(log, sinks...)
	log.Info("order events configured", zap.Int("sinks", notifier.Sinks()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	orderService := services.NewOrderService(st.orders, catalog, st.users, log,
		services.WithNotifier(notifier),
		services.WithMetrics(services.NewOrderMetrics(reg, metricsClient, serviceName)),
	)

	stop := make(chan struct{})
	defer close(stop)

	var recorder middleware.MetricsRecorder
	if metricsClient != nil {
		recorder = metricsClient
	}
	r := server.NewRouterWithRegistry(server.Options{
		Service:        serviceName,
		Logger:         log,
		Origins:        middleware.ParseOrigins(cfg.AllowedOrigins),
		CloudWatch:     recorder,
		RequestTimeout: cfg.RequestTimeout,
		Stop:           stop,
	}, reg)
	routes.RegisterOrderRoutes(r, controllers.NewOrderController(orderService), guard, cfg.ProtectAggregates)

	if err := server.Run(":"+cfg.Port, r, log, 5*time.Second); err != nil {
		log.Error("Server error", zap.Error(err))
	}
}
