package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  migrate  - Create tables or indexes for the configured STORE_DRIVER")
		fmt.Println("  verify   - Print document and question counts from the configured store")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.StoreDriver == config.StoreMemory {
		fmt.Println("STORE_DRIVER=memory has nothing to migrate")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch command {
	case "migrate":
		if err := migrate(ctx, cfg); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migration completed successfully!")

	case "verify":
		if err := verify(ctx, cfg); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		fmt.Println("Verification completed successfully!")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

// migrate relies on the stores preparing their schema when opened:
// AutoMigrate for the SQL drivers and CreateIndexes for MongoDB.
func migrate(ctx context.Context, cfg *config.Config) error {
	fmt.Printf("Preparing %s store...\n", cfg.StoreDriver)

	docs, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %v", err)
	}
	defer docs.Close()

	if sqlStore, ok := docs.(*store.SQLStore); ok {
		if err := sqlStore.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func verify(ctx context.Context, cfg *config.Config) error {
	fmt.Println("Verifying store...")

	docs, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %v", err)
	}
	defer docs.Close()

	all, err := docs.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %v", err)
	}

	fmt.Printf("Found %d documents\n", len(all))
	for _, d := range all {
		fmt.Printf("  document %d: %d characters, %d questions\n", d.ID, len([]rune(d.Text)), len(d.History))
	}
	return nil
}
