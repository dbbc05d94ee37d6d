package main

import (
	"context"
	"errors"
	"fidha/backend/internal/api/handler"
	"fidha/backend/internal/chathub"
	"fidha/backend/internal/config"
	"fidha/backend/internal/directory"
	"fidha/backend/internal/identity"
	"fidha/backend/internal/jobs"
	"fidha/backend/internal/localization"
	"fidha/backend/internal/storage"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

// parseFlags lets the command line override the environment.
func parseFlags(cfg *config.Config) {
	flagSet := pflag.NewFlagSet("fidha", pflag.ExitOnError)
	flagSet.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flagSet.StringVar(&cfg.StorageBackend, "backend", cfg.StorageBackend, "storage backend: memory, sqlite, postgres or mysql")
	flagSet.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "database DSN for SQL backends")
	flagSet.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for change fan-out (empty: in-process)")
	flagSet.BoolVar(&cfg.SeedDemoUsers, "seed", cfg.SeedDemoUsers, "insert the demo users on start")
	_ = flagSet.Parse(os.Args[1:])
}

// setupNotifiers повертає нотифікатори змін чатів і присутності.
func setupNotifiers(ctx context.Context, addr string) (chats, presence chathub.Notifier) {
	if addr == "" {
		log.Println("INFO: REDIS_ADDR not set, using in-process change notifiers")
		return chathub.NewLocalNotifier(), chathub.NewLocalNotifier()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}
	log.Printf("INFO: Redis connection established (%s)", addr)
	return chathub.NewRedisNotifier(rdb, chathub.ChatChangesChannel),
		chathub.NewRedisNotifier(rdb, chathub.PresenceChannel)
}

func main() {
	log.Println("Starting Fidha Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Error loading .env file")
	}
	cfg := config.Load()
	parseFlags(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	store, err := storage.New(&cfg)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}
	notifier, presence := setupNotifiers(ctx, cfg.RedisAddr)
	clock := clockwork.NewRealClock()
	scheduler, err := jobs.NewGocronScheduler(clock)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Shutdown()
	loc := localization.Default()

	// 2. Сервіси: каталог, Matcher, чати, хаби
	dir := directory.NewService(store, clock, directory.OptionsFromConfig(&cfg))
	dir.Presence = presence
	matcher := chathub.NewMatcherService(store, clock, loc, cfg.DefaultLanguage)
	chats := chathub.NewChatService(store, notifier, scheduler, clock, loc, cfg.DefaultLanguage)
	chats.ReplyDelayMin = cfg.ReplyDelayMin
	chats.ReplyDelayMax = cfg.ReplyDelayMax
	chats.SimulatedReplies = cfg.SimulatedReplies
	defer chats.Close()
	conversations := chathub.NewConversationService(store, loc, cfg.DefaultLanguage)
	hub := chathub.NewManagerService(chats, notifier)
	nearby := chathub.NewNearbyHub(dir, presence, cfg.NearbyLimit)

	if cfg.SeedDemoUsers {
		seed, err := config.LoadSeed()
		if err != nil {
			log.Fatalf("Failed to load seed users: %v", err)
		}
		n, err := dir.SeedDemoUsers(ctx, seed)
		if err != nil {
			log.Fatalf("Failed to seed users: %v", err)
		}
		log.Printf("INFO: Seeded %d demo user(s)", n)
	}

	// 3. Запуск фонових Goroutines
	sweeper := directory.NewPresenceSweeper(dir, scheduler, cfg.PresenceSweepInterval)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("Failed to start presence sweeper: %v", err)
	}
	go func() { // Головний диспетчер чатів
		if err := hub.Run(ctx); err != nil {
			log.Printf("ERROR: Chat hub exited: %v", err)
		}
	}()
	go func() { // Живий список людей поруч
		if err := nearby.Run(ctx); err != nil {
			log.Printf("ERROR: Nearby hub exited: %v", err)
		}
	}()

	// 4. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(dir, matcher, chats, conversations, hub, nearby, identity.NewCookieStore(cfg.SessionSecret), cfg.JWTSecret)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Запуск HTTP-сервера
	go func() {
		log.Printf("INFO: Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP shutdown: %v", err)
	}
	if err := sweeper.Stop(); err != nil {
		log.Printf("WARNING: %v", err)
	}
}
