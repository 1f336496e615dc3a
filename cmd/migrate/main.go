package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"socialhub/config"
	"socialhub/internal/repository"
	"socialhub/internal/services"
	"socialhub/pkg/database"
)

const usage = `
SocialHub Chat - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Apply all pending SQL migrations
  down        Roll back all SQL migrations
  status      Show connection status and migration version
  seed-dev    Seed with development data and print access tokens
  reset       Roll back and re-apply all migrations (DANGEROUS)

Flags:
  -token-ttl duration  Lifetime of tokens printed by seed-dev (default 24h)

Examples:
  go run ./cmd/migrate up
  go run ./cmd/migrate seed-dev
  go run ./cmd/migrate status
`

func main() {
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of tokens printed by seed-dev")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	cfg := config.LoadConfig()

	switch command {
	case "up":
		runMigrationsUp(cfg)
	case "down":
		runMigrationsDown(cfg)
	case "status":
		showStatus(cfg)
	case "seed-dev":
		runSeedDevelopment(cfg, *tokenTTL)
	case "reset":
		runMigrationsDown(cfg)
		runMigrationsUp(cfg)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(cfg *config.Config) {
	log.Println("🚀 Running migrations UP...")

	if err := database.MigrateUp(cfg); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func runMigrationsDown(cfg *config.Config) {
	log.Println("⬇️  Rolling back migrations...")

	if err := database.MigrateDown(cfg); err != nil {
		log.Fatalf("❌ Rollback failed: %v", err)
	}

	log.Println("✅ Rollback completed successfully!")
}

func showStatus(cfg *config.Config) {
	log.Println("🔍 Checking database status...")

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close(db)

	if err := database.HealthCheck(context.Background(), db); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	version, dirty, err := database.MigrationVersion(cfg)
	if err != nil {
		log.Fatalf("❌ Could not read migration version: %v", err)
	}
	log.Printf("✅ Migration version: %d (dirty: %t)", version, dirty)

	for _, table := range []string{"users", "posts", "chats", "chat_members", "messages"} {
		if !db.Migrator().HasTable(table) {
			log.Printf("❌ Table %-15s does not exist", table)
			continue
		}
		var count int64
		db.Table(table).Count(&count)
		log.Printf("✅ Table %-15s exists (%d rows)", table, count)
	}
}

func runSeedDevelopment(cfg *config.Config, tokenTTL time.Duration) {
	log.Println("🌱 Seeding database (development mode)...")

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close(db)

	result, err := database.Seed(context.Background(), db, nil)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	users := services.NewUserService(repository.NewUserRepository(db), nil, nil)
	auth := services.NewAuthService(users, cfg)

	log.Println("📊 Seed Summary:")
	log.Printf("   - Chats: %d", len(result.Chats))
	log.Printf("   - Messages: %d", len(result.Messages))
	for _, u := range result.Users {
		token, err := auth.IssueAccessToken(u.ID, tokenTTL)
		if err != nil {
			log.Fatalf("❌ Could not issue token for %s: %v", u.Name, err)
		}
		log.Printf("   - %s (%s)\n     token: %s", u.Name, u.ID, token)
	}
	log.Println("✅ Development seeding completed!")
}
