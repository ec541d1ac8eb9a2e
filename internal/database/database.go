package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/clause"
)

// DB holds the process-wide connection
var DB *gorm.DB

// Options tune the connection opened by Initialize
type Options struct {
	DSN     string
	Verbose bool        // log every statement
	Plugins []gorm.Plugin
}

// Initialize opens the Postgres connection and configures the pool
func Initialize(opts Options) error {
	gormLog := gormlogger.Default.LogMode(gormlogger.Warn)
	if opts.Verbose {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, p := range opts.Plugins {
		if err := db.Use(p); err != nil {
			return fmt.Errorf("failed to register gorm plugin %s: %w", p.Name(), err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	logger.Log.Info("Database connected")
	return nil
}

// Migrate creates the schema, Postgres-only indexes and reference rows
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		logger.WarnWithFields("Could not create pg_trgm extension; search will scan", err)
	}

	if err := DB.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes()

	if err := EnsureReferenceData(DB); err != nil {
		return fmt.Errorf("failed to seed reference data: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

func createIndexes() {
	statements := []string{
		// Feed and listing scans
		"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_post_counters_likes ON post_counters (like_count DESC)",
		"CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)",

		// Case-insensitive lookups
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",

		// ILIKE search
		"CREATE INDEX IF NOT EXISTS idx_users_username_trgm ON users USING gin (username gin_trgm_ops)",
		"CREATE INDEX IF NOT EXISTS idx_profiles_display_name_trgm ON profiles USING gin (display_name gin_trgm_ops)",
		"CREATE INDEX IF NOT EXISTS idx_posts_body_trgm ON posts USING gin (body gin_trgm_ops)",
		"CREATE INDEX IF NOT EXISTS idx_hashtags_name_trgm ON hashtags USING gin (name gin_trgm_ops)",
	}
	for _, stmt := range statements {
		if err := DB.Exec(stmt).Error; err != nil {
			logger.Log.Warn("Index creation failed", zap.String("statement", stmt), zap.Error(err))
		}
	}
}

// EnsureReferenceData inserts notification types, default interests and one
// lowercase hashtag per interest. It is idempotent.
func EnsureReferenceData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, name := range models.NotificationTypeNames {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.NotificationType{Name: name}).Error; err != nil {
				return err
			}
		}

		for _, name := range models.DefaultInterests {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Interest{Name: name}).Error; err != nil {
				return err
			}
			var interest models.Interest
			if err := tx.Where("name = ?", name).First(&interest).Error; err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Hashtag{Name: strings.ToLower(name), InterestID: &interest.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the connection pool
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings the database
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
