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
)

type Config struct {
	Port     string
	Env      string
	Store    string
	MongoURI string
	MongoDB  string
	Postgres database.PostgresConfig

	JWTSecret      string
	RedisURL       string
	AllowedOrigins string
	RequestTimeout time.Duration
}

func LoadConfig(ctx context.Context, secrets config.SecretSource) (*Config, error) {
	cfg := &Config{
		Port:     config.GetEnv("PORT", "8085"),
		Env:      config.GetEnv("APP_ENV", "development"),
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
		JWTSecret:      config.GetEnv("JWT_SECRET", ""),
		RedisURL:       config.GetEnv("REDIS_URL", ""),
		AllowedOrigins: config.GetEnv("ALLOWED_ORIGINS", ""),
		RequestTimeout: 30 * time.Second,
	}

	if secrets != nil {
		err := config.ApplySecrets(ctx, secrets, "storefront/user-service", map[string]*string{
			"MONGO_URI":         &cfg.MongoURI,
			"JWT_SECRET":        &cfg.JWTSecret,
			"REDIS_URL":         &cfg.RedisURL,
			"POSTGRES_HOST":     &cfg.Postgres.Host,
			"POSTGRES_USER":     &cfg.Postgres.User,
			"POSTGRES_PASSWORD": &cfg.Postgres.Password,
			"POSTGRES_DB":       &cfg.Postgres.DBName,
		})
		if err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.Store {
	case storeMongo:
		if cfg.MongoURI == "" || cfg.MongoDB == "" {
			return nil, fmt.Errorf("MONGO_URI and MONGO_DB are required")
		}
	case storePostgres:
		if !cfg.Postgres.Complete() {
			return nil, fmt.Errorf("database config incomplete")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store)
	}
	return cfg, nil
}

func (c *Config) SecureCookies() bool {
	return c.Env != "development"
}
