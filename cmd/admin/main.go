package main

import (
	"context"
	"fidha/backend/internal/chathub"
	"fidha/backend/internal/config"
	"fidha/backend/internal/directory"
	"fidha/backend/internal/localization"
	"fidha/backend/internal/storage"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  expire-match <match_id>   close a match and its chat")
	fmt.Println("  list-matches <user_id>    list a user's matches")
	fmt.Println("  sweep-presence            mark stale users offline")
	fmt.Println("  seed                      insert the demo users")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Error loading .env file")
	}
	cfg := config.Load()
	if cfg.StorageBackend == config.BackendMemory {
		log.Println("WARNING: STORAGE_BACKEND is memory; changes will not outlive this command")
	}

	store, err := storage.New(&cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	clock := clockwork.NewRealClock()
	matcher := chathub.NewMatcherService(store, clock, localization.Default(), cfg.DefaultLanguage)
	dir := directory.NewService(store, clock, directory.OptionsFromConfig(&cfg))
	// Якщо є Redis, запущені сервери дізнаються про зміни присутності.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: os.Getenv("REDIS_PASSWORD")})
		defer rdb.Close()
		dir.Presence = chathub.NewRedisNotifier(rdb, chathub.PresenceChannel)
	}

	command := os.Args[1]

	switch command {
	case "expire-match":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin expire-match <match_id>")
			os.Exit(1)
		}
		matchID := os.Args[2]
		if err := matcher.ExpireMatch(ctx, matchID); err != nil {
			log.Fatalf("Error expiring match: %v", err)
		}
		fmt.Printf("Match %s has been expired.\n", matchID)
	case "list-matches":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin list-matches <user_id>")
			os.Exit(1)
		}
		matches, err := matcher.ListMatches(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Error listing matches: %v", err)
		}
		for _, m := range matches {
			fmt.Printf("%s\t%s\t%s <-> %s\tchat=%s\t%s\n",
				m.ID, m.Status, m.User1ID, m.User2ID, m.ChatID, m.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	case "sweep-presence":
		n, err := dir.SweepPresence(ctx)
		if err != nil {
			log.Fatalf("Error sweeping presence: %v", err)
		}
		fmt.Printf("%d user(s) marked offline.\n", n)
	case "seed":
		seed, err := config.LoadSeed()
		if err != nil {
			log.Fatalf("Error loading seed: %v", err)
		}
		n, err := dir.SeedDemoUsers(ctx, seed)
		if err != nil {
			log.Fatalf("Error seeding users: %v", err)
		}
		fmt.Printf("%d user(s) seeded.\n", n)
	default:
		fmt.Println("Unknown command")
		usage()
		os.Exit(1)
	}
}
