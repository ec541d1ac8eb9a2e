package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/projecty/backend/internal/config"
	"github.com/projecty/backend/internal/database"
	"github.com/projecty/backend/internal/logger"
	"github.com/projecty/backend/internal/seed"
)

func main() {
	if !config.LoadDotEnv() {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		opts := seed.DevOptions()
		fs := flag.NewFlagSet("dev", flag.ExitOnError)
		fs.IntVar(&opts.Users, "users", opts.Users, "number of users")
		fs.IntVar(&opts.PostsPerUser, "posts", opts.PostsPerUser, "posts per user")
		fs.IntVar(&opts.Conversations, "conversations", opts.Conversations, "conversations to start")
		fs.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
		if len(os.Args) > 2 {
			_ = fs.Parse(os.Args[2:])
		}
		seedWith("🌱 Seeding development database...", opts)
	case "test":
		seedWith("🧪 Seeding test database...", seed.TestOptions())
	case "clean":
		cleanSeed()
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all user data (use with caution)")
		os.Exit(1)
	}
}

func connect() {
	if err := database.Initialize(database.Options{DSN: config.DatabaseURL()}); err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connected")

	if err := database.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
}

func seedWith(banner string, opts seed.Options) {
	log.Println(banner)
	connect()
	defer database.Close()

	stats, err := seed.NewSeeder(database.DB, opts).SeedDev(context.Background(), opts)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✅ Seeded %d users, %d posts, %d likes, %d comments, %d conversations",
		stats.Users, stats.Posts, stats.Likes, stats.Comments, stats.Conversations)
	log.Printf("   Every account uses the password %q", seed.DevPassword)
}

func cleanSeed() {
	log.Println("🧹 Cleaning seed data...")
	connect()
	defer database.Close()

	if err := seed.NewSeeder(database.DB, seed.TestOptions()).Clean(context.Background()); err != nil {
		log.Fatalf("❌ Clean failed: %v", err)
	}
	log.Println("✅ Seed data cleaned successfully!")
}
