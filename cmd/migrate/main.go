package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"gounlearn/adapters/postgres"
	"gounlearn/internal/migration"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	driver := strings.ToLower(os.Getenv("DB_DRIVER"))
	if len(os.Args) > 1 {
		databaseURL = os.Args[1]
	}
	if len(os.Args) > 2 {
		driver = strings.ToLower(os.Args[2])
	}
	if driver == "" {
		driver = "postgres"
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate [database_url] [postgres|sqlite] (or set DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Printf("Migrating %s database to schema %s", driver, migration.NewRunner().Version())
	// Open runs the migrations
	db, err := postgres.Open(ctx, driver, databaseURL)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	defer db.Close()

	versions, err := migration.AppliedVersions(ctx, db)
	if err != nil {
		log.Fatalf("Failed to read schema versions: %v", err)
	}
	log.Printf("Applied schema versions: %s", strings.Join(versions, ", "))
}
