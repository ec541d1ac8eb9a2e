// Package testutil builds databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projecty/backend/internal/database"
	"github.com/projecty/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewSQLiteDB returns a migrated in-memory database private to t
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, database.EnsureReferenceData(db))
	return db
}

// PostgresDSN builds a DSN from POSTGRES_* variables with local defaults
func PostgresDSN() string {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		get("POSTGRES_HOST", "localhost"),
		get("POSTGRES_PORT", "5432"),
		get("POSTGRES_USER", "postgres"),
		get("POSTGRES_PASSWORD", ""),
		get("POSTGRES_DB", "projecty_test"),
	)
}

// OpenPostgres connects to the test Postgres and migrates it. The error is
// returned so suites can skip when no server is running.
func OpenPostgres() (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(PostgresDSN()), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}
	if err := database.EnsureReferenceData(db); err != nil {
		return nil, err
	}
	return db, nil
}

// TruncateAll empties every non-reference table in Postgres
func TruncateAll(db *gorm.DB) error {
	return db.Exec(`TRUNCATE TABLE users, profiles, user_interests, follows, user_blocks,
		posts, post_counters, post_likes, comments, reposts, post_hashtags,
		conversations, conversation_participants, messages, notifications
		RESTART IDENTITY CASCADE`).Error
}
