package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Addr                 string
	Environment          string
	LogLevel             string
	StoreDriver          string
	DatabaseURL          string
	SQLitePath           string
	MigrationsDir        string
	JWTSecret            string
	JWTTTL               time.Duration
	SeedAdminEmail       string
	SeedAdminPassword    string
	RunMigrations        bool
	RunSeed              bool
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	SummaryCacheTTL      time.Duration
	OverdueSweepInterval time.Duration
	DeadlinePolicyFile   string
	MetricsEnabled       bool
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return Config{
		Addr:                 v.GetString("APP_ADDR"),
		Environment:          v.GetString("APP_ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		StoreDriver:          strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		SQLitePath:           v.GetString("SQLITE_PATH"),
		MigrationsDir:        v.GetString("MIGRATIONS_DIR"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTTTL:               v.GetDuration("JWT_TTL"),
		SeedAdminEmail:       v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:    v.GetString("SEED_ADMIN_PASSWORD"),
		RunMigrations:        v.GetBool("RUN_MIGRATIONS"),
		RunSeed:              v.GetBool("RUN_SEED"),
		MaxBodyBytes:         v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute:   v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		SummaryCacheTTL:      v.GetDuration("SUMMARY_CACHE_TTL"),
		OverdueSweepInterval: v.GetDuration("OVERDUE_SWEEP_INTERVAL"),
		DeadlinePolicyFile:   v.GetString("DEADLINE_POLICY_FILE"),
		MetricsEnabled:       v.GetBool("METRICS_ENABLED"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "hrreview.db")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 8*time.Hour)
	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("RUN_SEED", true)
	v.SetDefault("MAX_BODY_BYTES", 1048576)
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SUMMARY_CACHE_TTL", time.Minute)
	v.SetDefault("OVERDUE_SWEEP_INTERVAL", time.Hour)
	v.SetDefault("DEADLINE_POLICY_FILE", "")
	v.SetDefault("METRICS_ENABLED", true)
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.OverdueSweepInterval < 0 {
		return fmt.Errorf("OVERDUE_SWEEP_INTERVAL must not be negative")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
