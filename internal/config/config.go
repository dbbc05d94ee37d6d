// Package config loads service configuration from the environment and holds
// the tunable constants of the simulated parts of the service.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Storage backends understood by storage.New.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

type Config struct {
	HTTPAddr string

	StorageBackend string
	DatabaseDSN    string
	RedisAddr      string

	JWTSecret     string
	SessionSecret string

	ScanDelayMin time.Duration
	ScanDelayMax time.Duration
	NearbyLimit  int

	ReplyDelayMin    time.Duration
	ReplyDelayMax    time.Duration
	SimulatedReplies bool

	PresenceTTL           time.Duration
	PresenceSweepInterval time.Duration

	SeedDemoUsers   bool
	DefaultLanguage string
}

// Load reads the configuration from environment variables, falling back to
// defaults for anything unset or malformed.
func Load() Config {
	return Config{
		HTTPAddr:              envString("HTTP_ADDR", ":8080"),
		StorageBackend:        envString("STORAGE_BACKEND", BackendMemory),
		DatabaseDSN:           os.Getenv("DATABASE_DSN"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		JWTSecret:             envString("JWT_SECRET", "fidha-dev-jwt-secret"),
		SessionSecret:         envString("SESSION_SECRET", "fidha-dev-session-secret"),
		ScanDelayMin:          envDuration("SCAN_DELAY_MIN", DefaultScanDelayMin),
		ScanDelayMax:          envDuration("SCAN_DELAY_MAX", DefaultScanDelayMax),
		NearbyLimit:           envInt("NEARBY_LIMIT", DefaultNearbyLimit),
		ReplyDelayMin:         envDuration("REPLY_DELAY_MIN", DefaultReplyDelayMin),
		ReplyDelayMax:         envDuration("REPLY_DELAY_MAX", DefaultReplyDelayMax),
		SimulatedReplies:      envBool("SIMULATED_REPLIES", true),
		PresenceTTL:           envDuration("PRESENCE_TTL", DefaultPresenceTTL),
		PresenceSweepInterval: envDuration("PRESENCE_SWEEP_INTERVAL", DefaultPresenceSweepInterval),
		SeedDemoUsers:         envBool("SEED_DEMO_USERS", true),
		DefaultLanguage:       envString("DEFAULT_LANGUAGE", "en"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
