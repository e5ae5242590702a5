package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Ledger store backends selectable through LEDGER_STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	LedgerStore    string
	MigrationsPath string
	// SeedAccounts preloads the memory store: "accountID:userID:balance,...".
	SeedAccounts string

	// Idempotency outcome cache; disabled when RedisURL is empty.
	RedisURL            string
	IdempotencyCacheTTL time.Duration
	IdempotencyWindow   time.Duration

	TransferMaxAttempts int
	TransferBaseDelay   time.Duration
	TransferMaxDelay    time.Duration
	LockTimeout         time.Duration

	RateLimit          string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", true)
	v.SetDefault("LEDGER_STORE", StorePostgres)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("SEED_ACCOUNTS", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("IDEMPOTENCY_CACHE_TTL", "24h")
	v.SetDefault("IDEMPOTENCY_WINDOW", "5m")
	v.SetDefault("TRANSFER_MAX_ATTEMPTS", 5)
	v.SetDefault("TRANSFER_BASE_DELAY", "20ms")
	v.SetDefault("TRANSFER_MAX_DELAY", "500ms")
	v.SetDefault("LOCK_TIMEOUT", "2s")
	v.SetDefault("RATE_LIMIT", "100-S")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:    v.GetString("PGSQL_URL"),
		Port:           v.GetString("PORT"),
		IsProduction:   v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:  v.GetBool("ENABLE_DB_CHECK"),
		LedgerStore:    strings.ToLower(strings.TrimSpace(v.GetString("LEDGER_STORE"))),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		SeedAccounts:   v.GetString("SEED_ACCOUNTS"),
		RedisURL:       v.GetString("REDIS_URL"),
		RateLimit:      v.GetString("RATE_LIMIT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	switch cfg.LedgerStore {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL must be set when LEDGER_STORE is %q", StorePostgres)
		}
	case StoreMemory:
		log.Println("Warning: LEDGER_STORE=memory, balances are lost on restart.")
	default:
		return nil, fmt.Errorf("unsupported LEDGER_STORE %q", cfg.LedgerStore)
	}

	cfg.IdempotencyCacheTTL = durationOrDefault(v, "IDEMPOTENCY_CACHE_TTL", 24*time.Hour)
	cfg.IdempotencyWindow = durationOrDefault(v, "IDEMPOTENCY_WINDOW", 5*time.Minute)
	cfg.TransferBaseDelay = durationOrDefault(v, "TRANSFER_BASE_DELAY", 20*time.Millisecond)
	cfg.TransferMaxDelay = durationOrDefault(v, "TRANSFER_MAX_DELAY", 500*time.Millisecond)
	cfg.LockTimeout = durationOrDefault(v, "LOCK_TIMEOUT", 2*time.Second)

	cfg.TransferMaxAttempts = v.GetInt("TRANSFER_MAX_ATTEMPTS")
	if cfg.TransferMaxAttempts < 1 {
		return nil, fmt.Errorf("TRANSFER_MAX_ATTEMPTS must be at least 1, got %d", cfg.TransferMaxAttempts)
	}
	if cfg.TransferMaxDelay < cfg.TransferBaseDelay {
		return nil, fmt.Errorf("TRANSFER_MAX_DELAY (%s) must not be below TRANSFER_BASE_DELAY (%s)", cfg.TransferMaxDelay, cfg.TransferBaseDelay)
	}

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

// durationOrDefault parses key as a duration, falling back to def with a warning
// when the value is missing, malformed or not positive.
func durationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def.String())
		return def
	}
	return d
}
