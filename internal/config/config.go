package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the service.
type Config struct {
	DatabaseURL  string
	HTTPAddr     string
	JWTSecret    string
	TokenTTL     time.Duration
	Currency     string
	CommissionBp int
	Schedule     ScheduleConfig
}

// ScheduleConfig defines the settlement and sweep schedule.
type ScheduleConfig struct {
	DailyAt     string        `yaml:"daily_at"`
	Timezone    string        `yaml:"timezone"`
	SweepEvery  time.Duration `yaml:"sweep_every"`
	RunDeadline time.Duration `yaml:"run_deadline"`
	WebhookURL  string        `yaml:"webhook_url"`
}

// Load reads configuration from .env, environment variables and an
// optional YAML schedule file pointed at by SCHEDULE_CONFIG.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:  getenvDefault("DATABASE_URL", os.Getenv("PG_DSN")),
		HTTPAddr:     getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:    getenvDefault("AUTH_JWT_SECRET", os.Getenv("JWT_SECRET")),
		TokenTTL:     getenvDuration("AUTH_TOKEN_TTL", 7*24*time.Hour),
		Currency:     getenvDefault("CURRENCY", "XOF"),
		CommissionBp: getenvIntDefault("COMMISSION_RATE_BP", 500),
		Schedule: ScheduleConfig{
			DailyAt:     getenvDefault("SETTLEMENT_DAILY_AT", "00:01"),
			Timezone:    getenvDefault("SETTLEMENT_TIMEZONE", "Africa/Abidjan"),
			SweepEvery:  getenvDuration("EXPIRY_SWEEP_EVERY", time.Hour),
			RunDeadline: getenvDuration("SETTLEMENT_RUN_DEADLINE", 10*time.Minute),
			WebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
	}

	if path := os.Getenv("SCHEDULE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg.Schedule); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("config: AUTH_JWT_SECRET is required")
	}
	if _, err := time.Parse("15:04", cfg.Schedule.DailyAt); err != nil {
		return cfg, errors.New("config: invalid SETTLEMENT_DAILY_AT, expected HH:MM")
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		return cfg, errors.New("config: invalid SETTLEMENT_TIMEZONE")
	}
	if cfg.CommissionBp < 0 || cfg.CommissionBp > 10_000 {
		return cfg, errors.New("config: COMMISSION_RATE_BP out of range")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
