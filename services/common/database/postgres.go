package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConfig holds the relational store settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode, c.TimeZone)
}

// Complete reports whether the settings needed to connect are present.
func (c PostgresConfig) Complete() bool {
	return c.Host != "" && c.User != "" && c.Password != "" && c.DBName != ""
}

var (
	connectAttempts = 10
	retryBackoff    = 2 * time.Second
	dial            = func(dsn string) gorm.Dialector { return postgres.Open(dsn) }
)

// OpenPostgres opens a GORM handle, retrying with a growing backoff while the
// server is unreachable. Driver errors are translated so unique violations
// surface as gorm.ErrDuplicatedKey.
func OpenPostgres(cfg PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	var err error
	for i := 0; i < connectAttempts; i++ {
		var db *gorm.DB
		db, err = gorm.Open(dial(cfg.DSN()), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			if sqlDB, poolErr := db.DB(); poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}
			return db, nil
		}

		log.Warn("Postgres connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		if i+1 < connectAttempts {
			time.Sleep(time.Duration(i+1) * retryBackoff)
		}
	}
	return nil, fmt.Errorf("failed to connect to Postgres after %d attempts: %w", connectAttempts, err)
}

// ClosePostgres releases the pool behind db.
func ClosePostgres(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
