package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/projecty/backend/internal/config"
	"github.com/projecty/backend/internal/counters"
	"github.com/projecty/backend/internal/database"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/metrics"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report drift without writing")
	verbose := flag.Bool("v", false, "print every drifted row")
	flag.Parse()

	if !config.LoadDotEnv() {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := database.Initialize(database.Options{DSN: config.DatabaseURL()}); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	metrics.Initialize()

	log.Printf("🔢 Reconciling post counters (dry-run=%v)...", *dryRun)
	report, err := counters.Reconcile(context.Background(), database.DB, *dryRun)
	if err != nil {
		log.Fatalf("❌ Reconcile failed: %v", err)
	}
	metrics.RecordCounterDrift(len(report.Drift))

	if *verbose {
		for _, d := range report.Drift {
			log.Printf("   %s likes %d→%d comments %d→%d reposts %d→%d",
				d.PostID, d.LikeCount, d.Likes, d.CommentCount, d.Comments, d.RepostCount, d.Reposts)
		}
	}

	if *dryRun {
		log.Printf("✅ %d posts missing counters, %d rows drifted (nothing written)", report.Inserted, len(report.Drift))
		return
	}
	log.Printf("✅ Inserted %d counters rows, corrected %d", report.Inserted, report.Corrected)
}
