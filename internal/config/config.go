package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the talent ledger service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseDriver       string
	DatabaseURL          string
	RedisURL             string
	RedisChannel         string
	NATSURL              string
	JWTSecret            string
	ProfileCacheTTL      time.Duration
	LedgerMaxAttempts    int
	LedgerRetryDelay     time.Duration
	LedgerTxTimeout      time.Duration
	AttendanceWeeklyOnly bool
	HistoryLayoutCap     int
	SeedEnabled          bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TALENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Talent Tree API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("redis.channel", "talent")
	v.SetDefault("profile.cache_ttl", "2m")
	v.SetDefault("ledger.max_attempts", 3)
	v.SetDefault("ledger.retry_delay", "50ms")
	v.SetDefault("ledger.tx_timeout", "5s")
	v.SetDefault("attendance.weekly_limit", true)
	v.SetDefault("history.layout_cap", 40)
	v.SetDefault("seed.enabled", false)

	cacheTTL, err := parseDuration(v, "profile.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	retryDelay, err := parseDuration(v, "ledger.retry_delay")
	if err != nil {
		return Config{}, err
	}
	txTimeout, err := parseDuration(v, "ledger.tx_timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseDriver:       strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		RedisChannel:         v.GetString("redis.channel"),
		NATSURL:              v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		ProfileCacheTTL:      cacheTTL,
		LedgerMaxAttempts:    v.GetInt("ledger.max_attempts"),
		LedgerRetryDelay:     retryDelay,
		LedgerTxTimeout:      txTimeout,
		AttendanceWeeklyOnly: v.GetBool("attendance.weekly_limit"),
		HistoryLayoutCap:     v.GetInt("history.layout_cap"),
		SeedEnabled:          v.GetBool("seed.enabled"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.LedgerMaxAttempts <= 0 {
		cfg.LedgerMaxAttempts = 3
	}

	if cfg.HistoryLayoutCap <= 0 {
		cfg.HistoryLayoutCap = 40
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
