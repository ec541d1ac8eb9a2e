package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/projecty/backend/internal/config"
	"github.com/projecty/backend/internal/database"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/models"
	"github.com/projecty/backend/internal/search"
)

func main() {
	if !config.LoadDotEnv() {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	case "reindex":
		reindex()
	default:
		fmt.Println("Usage: migrate [up|status|reindex]")
		fmt.Println("  up      - Create tables, indexes and reference data")
		fmt.Println("  status  - Show which tables exist and their row counts")
		fmt.Println("  reindex - Rebuild the Elasticsearch indices from Postgres")
		os.Exit(1)
	}
}

func connect() {
	log.Println("🔄 Connecting to database...")
	if err := database.Initialize(database.Options{DSN: config.DatabaseURL()}); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connected")
}

func runMigrationsUp() {
	connect()
	defer database.Close()

	log.Println("📈 Running migrations...")
	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ All migrations completed successfully!")
}

func showStatus() {
	connect()
	defer database.Close()

	migrator := database.DB.Migrator()
	for _, model := range models.All() {
		stmt := database.DB.Model(model).Statement
		if err := stmt.Parse(model); err != nil {
			log.Fatalf("❌ Failed to parse model: %v", err)
		}
		table := stmt.Schema.Table

		if !migrator.HasTable(model) {
			fmt.Printf("  %-28s missing\n", table)
			continue
		}
		var n int64
		if err := database.DB.Model(model).Count(&n).Error; err != nil {
			fmt.Printf("  %-28s error: %v\n", table, err)
			continue
		}
		fmt.Printf("  %-28s %d rows\n", table, n)
	}
}

func reindex() {
	url := os.Getenv("ELASTICSEARCH_URL")
	if url == "" {
		log.Fatal("❌ ELASTICSEARCH_URL is required for reindex")
	}

	connect()
	defer database.Close()

	es, err := search.NewElasticSearcher(url, database.DB, nil)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx := context.Background()
	if err := es.Ping(ctx); err != nil {
		log.Fatalf("❌ Elasticsearch unreachable: %v", err)
	}

	log.Println("🔍 Reindexing users and posts...")
	stats, err := es.Reindex(ctx)
	if err != nil {
		log.Fatalf("❌ Reindex failed: %v", err)
	}
	log.Printf("✅ Indexed %d users and %d posts (%d failed)", stats.Users, stats.Posts, stats.Failed)
}
