// Command seed loads the district list and, optionally, demo content.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"istancool/internal/cache"
	"istancool/internal/config"
	"istancool/internal/database"
	"istancool/internal/middleware"
	"istancool/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of demo users to create")
	numPosts := flag.Int("posts", 100, "Number of demo posts to create")
	shouldClean := flag.Bool("clean", false, "Delete posts, categories and users before seeding")
	districtsOnly := flag.Bool("districts-only", false, "Only upsert the built-in district list")
	fakerSeed := flag.Int64("seed", 0, "Seed for reproducible demo content (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, os.Stdout)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	// Cached district lists are dropped after the upsert.
	cache.InitRedis(cfg.RedisURL)

	if *districtsOnly {
		n, err := seed.Districts(ctx, db)
		if err != nil {
			log.Fatalf("District seeding failed: %v", err)
		}
		log.Printf("%d districts upserted", n)
		return
	}

	s := seed.NewSeeder(db, seed.Options{NumUsers: *numUsers, NumPosts: *numPosts, Seed: *fakerSeed})
	if *shouldClean {
		if err := s.Clean(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	stats, err := s.Demo(ctx)
	if err != nil {
		log.Fatalf("Demo seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d categories, %d posts", stats.Users, stats.Categories, stats.Posts)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
