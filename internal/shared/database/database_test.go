package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &DB{DB: sqlDB, GORM: gormDB}, mock
}

func TestHealthConnected(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`SELECT NOW\(\) AS time, version\(\) AS version`).
		WillReturnRows(sqlmock.NewRows([]string{"time", "version"}).AddRow(now, "PostgreSQL 16.2"))

	status := db.Health(context.Background())

	assert.Equal(t, "connected", status.Status)
	assert.Equal(t, "PostgreSQL 16.2", status.Version)
	assert.True(t, now.Equal(status.Time))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthDisconnected(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT NOW\(\)`).WillReturnError(errors.New("connection refused"))

	status := db.Health(context.Background())

	assert.Equal(t, "disconnected", status.Status)
	assert.Contains(t, status.Error, "connection refused")
}
