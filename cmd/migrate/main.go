// Command migrate runs schema operations against the postgres database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"istancool/internal/config"
	"istancool/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|down|status|version|reset|auto>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up", "down", "status", "version", "reset":
		if err := database.RunMigrations(ctx, db, cmd); err != nil {
			return err
		}
		log.Printf("migrate %s done", cmd)
	case "auto":
		// Whatever the driver, Migrate picks goose for postgres and
		// AutoMigrate otherwise.
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Println("schema is up to date")
	default:
		return usage()
	}
	return nil
}
