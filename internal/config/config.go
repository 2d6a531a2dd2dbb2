package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	HashCost           int

	VerificationTTL           time.Duration
	VerificationSweepInterval time.Duration

	SMTP SMTPConfig

	DevMode bool
}

// SMTPConfig describes the outbound mail transport. An empty Host selects the log transport.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                      "3000",
		AccessTokenTTL:            time.Hour,
		RefreshTokenTTL:           7 * 24 * time.Hour,
		HashCost:                  bcrypt.DefaultCost,
		VerificationTTL:           180 * time.Second,
		VerificationSweepInterval: 600 * time.Second,
		SMTP:                      SMTPConfig{Port: 465},
	}

	// Load DATABASE_URL (required)
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if _, err := url.Parse(databaseURL); err != nil {
		return nil, fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	cfg.DatabaseURL = databaseURL

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Token secrets (required, must differ)
	cfg.AccessTokenSecret = os.Getenv("ACCESS_TOKEN_SECRET_KEY")
	if cfg.AccessTokenSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET_KEY environment variable is required")
	}
	cfg.RefreshTokenSecret = os.Getenv("REFRESH_TOKEN_SECRET_KEY")
	if cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET_KEY environment variable is required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET_KEY and REFRESH_TOKEN_SECRET_KEY must differ")
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_EXPIRES_IN", cfg.AccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_EXPIRES_IN", cfg.RefreshTokenTTL); err != nil {
		return nil, err
	}
	if cfg.VerificationTTL, err = durationEnv("VERIFICATION_CODE_TTL", cfg.VerificationTTL); err != nil {
		return nil, err
	}
	if cfg.VerificationSweepInterval, err = durationEnv("VERIFICATION_SWEEP_INTERVAL", cfg.VerificationSweepInterval); err != nil {
		return nil, err
	}

	if cfg.HashCost, err = intEnv("HASH_SALT_ROUNDS", cfg.HashCost); err != nil {
		return nil, err
	}
	if cfg.HashCost < bcrypt.MinCost || cfg.HashCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("HASH_SALT_ROUNDS must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.HashCost)
	}

	// SMTP (optional)
	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	cfg.SMTP.User = os.Getenv("SMTP_USER")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = os.Getenv("SMTP_FROM")
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", cfg.SMTP.Port); err != nil {
		return nil, err
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.From == "" {
		return nil, fmt.Errorf("SMTP_FROM or SMTP_USER is required when SMTP_HOST is set")
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return n, nil
}
