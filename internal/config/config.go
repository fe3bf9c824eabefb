package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Peer identity
	PeerID     string `env:"PEER_ID"`
	PlayerName string `env:"PLAYER_NAME" default:"Viking"`

	// Service ports and addresses
	SessionAddr  string `env:"SESSION_ADDR" default:"127.0.0.1:8082"`
	UDPPort      int    `env:"UDP_PORT" default:"8082"`
	HTTPPort     int    `env:"HTTP_PORT" default:"8084"`
	PeerHTTPPort int    `env:"PEER_HTTP_PORT" default:"8090"`

	// Corpus
	CorpusPath     string        `env:"CORPUS_PATH" default:"./config/AwardCategories.yml"`
	CorpusDebounce time.Duration `env:"CORPUS_DEBOUNCE" default:"250ms"`

	// Display settings published by the session server
	NumberOfDeaths    int  `env:"NUMBER_OF_DEATHS" default:"3"`
	TimerForDeaths    uint `env:"TIMER_FOR_DEATHS" default:"10"`
	LockConfiguration bool `env:"LOCK_CONFIGURATION" default:"true"`

	SubscriberTimeout time.Duration `env:"SUBSCRIBER_TIMEOUT" default:"5m"`

	// Synced value store and revision history, both optional
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Authentication
	JWTSecret         string        `env:"JWT_SECRET"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" default:"15m"`
	AdminUsername     string        `env:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from the environment, reading .env first when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv_load_failed", "error", err)
	}

	config := &Config{}

	loadEnvString(&config.GoEnv, "GO_ENV", "development")

	// Peer identity
	loadEnvString(&config.PeerID, "PEER_ID", uuid.NewString())
	loadEnvString(&config.PlayerName, "PLAYER_NAME", "Viking")

	// Ports
	loadEnvString(&config.SessionAddr, "SESSION_ADDR", "127.0.0.1:8082")
	if err := loadEnvInt(&config.UDPPort, "UDP_PORT", 8082); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8084); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.PeerHTTPPort, "PEER_HTTP_PORT", 8090); err != nil {
		return nil, err
	}

	// Corpus
	loadEnvString(&config.CorpusPath, "CORPUS_PATH", "./config/AwardCategories.yml")
	if err := loadEnvDuration(&config.CorpusDebounce, "CORPUS_DEBOUNCE", 250*time.Millisecond); err != nil {
		return nil, err
	}

	// Display settings
	if err := loadEnvInt(&config.NumberOfDeaths, "NUMBER_OF_DEATHS", 3); err != nil {
		return nil, err
	}
	if err := loadEnvUint(&config.TimerForDeaths, "TIMER_FOR_DEATHS", 10); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.LockConfiguration, "LOCK_CONFIGURATION", true); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.SubscriberTimeout, "SUBSCRIBER_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	loadEnvString(&config.RedisURL, "REDIS_URL", "")
	loadEnvString(&config.DatabaseURL, "DATABASE_URL", "")

	// Authentication
	loadEnvString(&config.JWTSecret, "JWT_SECRET", "")
	if err := loadEnvDuration(&config.AccessTokenTTL, "ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	loadEnvString(&config.AdminUsername, "ADMIN_USERNAME", "admin")
	loadEnvString(&config.AdminPasswordHash, "ADMIN_PASSWORD_HASH", "")

	// Development
	loadEnvString(&config.LogLevel, "LOG_LEVEL", "info")
	loadEnvString(&config.LogFormat, "LOG_FORMAT", "text")

	return config, nil
}

func loadEnvString(target *string, key, defaultValue string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvUint(target *uint, key string, defaultValue uint) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 0)
		if err != nil {
			return fmt.Errorf("invalid unsigned value for %s: %w", key, err)
		}
		*target = uint(parsed)
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate checks the values shared by every binary.
func (c *Config) Validate() error {
	var errors []string

	if c.UDPPort < 0 || c.UDPPort > 65535 {
		errors = append(errors, "UDP_PORT must be between 0 and 65535")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 0 and 65535")
	}
	if c.PeerHTTPPort < 0 || c.PeerHTTPPort > 65535 {
		errors = append(errors, "PEER_HTTP_PORT must be between 0 and 65535")
	}

	if c.NumberOfDeaths < 0 || c.NumberOfDeaths > 25 {
		errors = append(errors, "NUMBER_OF_DEATHS must be between 0 and 25")
	}
	if c.TimerForDeaths > uint(math.MaxInt64/int64(time.Second)) {
		errors = append(errors, "TIMER_FOR_DEATHS is too large")
	}
	if c.CorpusDebounce < 0 {
		errors = append(errors, "CORPUS_DEBOUNCE must not be negative")
	}
	if strings.TrimSpace(c.PlayerName) == "" {
		errors = append(errors, "PLAYER_NAME must not be blank")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// ValidateSessionServer adds the checks only the session server needs.
func (c *Config) ValidateSessionServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errors []string
	if len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET should be at least 32 characters long")
	}
	if c.AdminPasswordHash == "" {
		errors = append(errors, "ADMIN_PASSWORD_HASH is required")
	}
	if c.AccessTokenTTL <= 0 {
		errors = append(errors, "ACCESS_TOKEN_TTL must be positive")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}
