package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps both GORM and the underlying sql.DB
type DB struct {
	*sql.DB
	GORM *gorm.DB
}

// HealthStatus is the result of a database round trip.
type HealthStatus struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time,omitempty"`
	Version string    `json:"version,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// NewDB creates a new database connection using GORM
func NewDB(connStr string, debug bool) *DB {
	if connStr == "" {
		log.Fatal().Msg("DATABASE_URL is empty")
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	gormDB, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get sql.DB")
	}

	// Connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}

	log.Info().Msg("Database connected (GORM)")
	return &DB{
		DB:   sqlDB,
		GORM: gormDB,
	}
}

// Health runs a trivial query and reports server time and version.
func (db *DB) Health(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var row struct {
		Time    time.Time
		Version string
	}
	err := db.GORM.WithContext(ctx).Raw("SELECT NOW() AS time, version() AS version").Scan(&row).Error
	if err != nil {
		return HealthStatus{Status: "disconnected", Error: err.Error()}
	}
	return HealthStatus{Status: "connected", Time: row.Time, Version: row.Version}
}

func (db *DB) Close() error {
	log.Info().Msg("Closing database connection...")
	return db.DB.Close()
}
