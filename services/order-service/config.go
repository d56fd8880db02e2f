package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopswift/storefront/services/common/config"
	"github.com/shopswift/storefront/services/common/database"
)

const (
	storeMongo    = "mongo"
	storePostgres = "postgres"

	catalogStore = "store"
	catalogHTTP  = "http"
)

type Config struct {
	Port     string
	Store    string
	MongoURI string
	MongoDB  string
	Postgres database.PostgresConfig

	JWTSecret      string
	RedisURL       string
	AllowedOrigins string

	CatalogSource     string
	ProductServiceURL string

	SNSTopicArn  string
	KafkaBrokers []string
	EventsTopic  string

	ProtectAggregates bool
	RequestTimeout    time.Duration
}

func LoadConfig(ctx context.Context, secrets config.SecretSource) (*Config, error) {
	cfg := &Config{
		Port:     config.GetEnv("PORT", "8083"),
		Store:    config.GetEnv("STORE_DRIVER", storeMongo),
		MongoURI: config.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  config.GetEnv("MONGO_DB", "storefront"),
		Postgres: database.PostgresConfig{
			Host:     config.GetEnv("POSTGRES_HOST", ""),
			Port:     config.GetEnv("POSTGRES_PORT", "5432"),
			User:     config.GetEnv("POSTGRES_USER", ""),
			Password: config.GetEnv("POSTGRES_PASSWORD", ""),
			DBName:   config.GetEnv("POSTGRES_DB", ""),
			SSLMode:  config.GetEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: config.GetEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		JWTSecret:         config.GetEnv("JWT_SECRET", ""),
		RedisURL:          config.GetEnv("REDIS_URL", ""),
		AllowedOrigins:    config.GetEnv("ALLOWED_ORIGINS", ""),
		CatalogSource:     config.GetEnv("CATALOG_SOURCE", catalogStore),
		ProductServiceURL: config.GetEnv("PRODUCT_SERVICE_URL", "http://product-service:8082"),
		SNSTopicArn:       config.GetEnv("ORDER_SNS_TOPIC_ARN", ""),
		KafkaBrokers:      config.GetList("KAFKA_BROKERS"),
		EventsTopic:       config.GetEnv("ORDER_EVENTS_TOPIC", "order-events"),
		ProtectAggregates: config.GetBool("PROTECT_AGGREGATES", false),
		RequestTimeout:    30 * time.Second,
	}

	if secrets != nil {
		err := config.ApplySecrets(ctx, secrets, "storefront/order-service", map[string]*string{
			"MONGO_URI":         &cfg.MongoURI,
			"JWT_SECRET":        &cfg.JWTSecret,
			"POSTGRES_HOST":     &cfg.Postgres.Host,
			"POSTGRES_PORT":     &cfg.Postgres.Port,
			"POSTGRES_USER":     &cfg.Postgres.User,
			"POSTGRES_PASSWORD": &cfg.Postgres.Password,
			"POSTGRES_DB":       &cfg.Postgres.DBName,
		})
		if err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Store {
	case storeMongo:
		if c.MongoURI == "" || c.MongoDB == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DB are required")
		}
	case storePostgres:
		if !c.Postgres.Complete() {
			return fmt.Errorf("database config incomplete")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store)
	}
	switch c.CatalogSource {
	case catalogStore:
	case catalogHTTP:
		if c.ProductServiceURL == "" {
			return fmt.Errorf("PRODUCT_SERVICE_URL is required")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}
	return nil
}
