package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitPostgres opens the PostgreSQL connection and tunes the pool.
func InitPostgres(dsn, env string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database URL is not set")
	}

	logLevel := logger.Silent
	if env == "dev" {
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		conn *gorm.DB
		err  error
	)

	done := make(chan bool, 1)
	go func() {
		conn, err = gorm.Open(postgres.Open(dsn), gormConfig)
		done <- true
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("database connection timeout")
	case <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return conn, nil
}
