// Package config handles application configuration loading. Values come
// from an optional YAML file named by APP_CONFIG_FILE, then from the
// environment, which always wins.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultDBPassword is refused in production.
const defaultDBPassword = "changeme"

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Env      string `yaml:"env"` // "development", "production", "testing"
	LogLevel string `yaml:"logLevel"`

	// PostgreSQL connection
	DBHost     string `yaml:"dbHost"`
	DBPort     string `yaml:"dbPort"`
	DBUser     string `yaml:"dbUser"`
	DBPassword string `yaml:"dbPassword"`
	DBName     string `yaml:"dbName"`

	// Valkey (Redis-compatible cache)
	ValkeyHost     string `yaml:"valkeyHost"`
	ValkeyPort     string `yaml:"valkeyPort"`
	ValkeyPassword string `yaml:"valkeyPassword"`

	// AI provider settings. The Fast models serve prompt enhancement.
	AIProvider   string `yaml:"aiProvider"` // "gemini", "openai", "claude", "mistral"
	AIModeration bool   `yaml:"aiModeration"`

	OpenAIKey       string `yaml:"openaiKey"`
	OpenAIModel     string `yaml:"openaiModel"`
	OpenAIFastModel string `yaml:"openaiFastModel"`
	OpenAIBaseURL   string `yaml:"openaiBaseURL"`

	GeminiKey       string `yaml:"geminiKey"`
	GeminiModel     string `yaml:"geminiModel"`
	GeminiFastModel string `yaml:"geminiFastModel"`
	GeminiBaseURL   string `yaml:"geminiBaseURL"`

	ClaudeKey       string `yaml:"claudeKey"`
	ClaudeModel     string `yaml:"claudeModel"`
	ClaudeFastModel string `yaml:"claudeFastModel"`
	ClaudeBaseURL   string `yaml:"claudeBaseURL"`

	MistralKey       string `yaml:"mistralKey"`
	MistralModel     string `yaml:"mistralModel"`
	MistralFastModel string `yaml:"mistralFastModel"`
	MistralBaseURL   string `yaml:"mistralBaseURL"`

	// Generation limits
	GenerateRateLimit  int           `yaml:"generateRateLimit"`
	GenerateRateWindow time.Duration `yaml:"generateRateWindow"`
	EnhanceRateLimit   int           `yaml:"enhanceRateLimit"`
	EnhanceRateWindow  time.Duration `yaml:"enhanceRateWindow"`
	LoginRateLimit     int           `yaml:"loginRateLimit"`
	StepBudget         int           `yaml:"stepBudget"`
	ThinkingBudget     int           `yaml:"thinkingBudget"`
	FreeRequests       int           `yaml:"freeRequests"`
	SubscriptionTTL    time.Duration `yaml:"subscriptionTTL"`

	// Bearer tokens; empty disables them outside production.
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

// defaults returns the development configuration.
func defaults() *Config {
	return &Config{
		Host:     "0.0.0.0",
		Port:     "8080",
		Env:      "development",
		LogLevel: "info",

		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "tweakgen",
		DBPassword: defaultDBPassword,
		DBName:     "tweakgen",

		ValkeyHost: "localhost",
		ValkeyPort: "6379",

		AIProvider: "gemini",

		OpenAIModel:      "gpt-4.1",
		OpenAIFastModel:  "gpt-4.1-mini",
		GeminiModel:      "gemini-2.5-pro",
		GeminiFastModel:  "gemini-2.5-flash",
		ClaudeModel:      "claude-sonnet-4-5",
		ClaudeFastModel:  "claude-haiku-4-5",
		MistralModel:     "mistral-large-latest",
		MistralFastModel: "mistral-small-latest",

		GenerateRateLimit:  5,
		GenerateRateWindow: 60 * time.Second,
		EnhanceRateLimit:   10,
		EnhanceRateWindow:  60 * time.Second,
		LoginRateLimit:     10,
		StepBudget:         5,
		ThinkingBudget:     128,
		FreeRequests:       5,
		SubscriptionTTL:    60 * time.Second,

		TokenTTL: 24 * time.Hour,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// APP_CONFIG_FILE if any, then environment variables. Returns an error if
// critical values are missing in production mode.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Host = envOrDefault("APP_HOST", cfg.Host)
	cfg.Port = envOrDefault("APP_PORT", cfg.Port)
	cfg.Env = envOrDefault("APP_ENV", cfg.Env)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.DBHost = envOrDefault("POSTGRES_HOST", cfg.DBHost)
	cfg.DBPort = envOrDefault("POSTGRES_PORT", cfg.DBPort)
	cfg.DBUser = envOrDefault("POSTGRES_USER", cfg.DBUser)
	cfg.DBPassword = envOrDefault("POSTGRES_PASSWORD", cfg.DBPassword)
	cfg.DBName = envOrDefault("POSTGRES_DB", cfg.DBName)

	cfg.ValkeyHost = envOrDefault("VALKEY_HOST", cfg.ValkeyHost)
	cfg.ValkeyPort = envOrDefault("VALKEY_PORT", cfg.ValkeyPort)
	cfg.ValkeyPassword = envOrDefault("VALKEY_PASSWORD", cfg.ValkeyPassword)

	cfg.AIProvider = envOrDefault("AI_PROVIDER", cfg.AIProvider)

	cfg.OpenAIKey = envOrDefault("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIModel = envOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIFastModel = envOrDefault("OPENAI_FAST_MODEL", cfg.OpenAIFastModel)
	cfg.OpenAIBaseURL = envOrDefault("OPENAI_BASE_URL", cfg.OpenAIBaseURL)

	cfg.GeminiKey = envOrDefault("GEMINI_API_KEY", cfg.GeminiKey)
	cfg.GeminiModel = envOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiFastModel = envOrDefault("GEMINI_FAST_MODEL", cfg.GeminiFastModel)
	cfg.GeminiBaseURL = envOrDefault("GEMINI_BASE_URL", cfg.GeminiBaseURL)

	cfg.ClaudeKey = envOrDefault("CLAUDE_API_KEY", cfg.ClaudeKey)
	cfg.ClaudeModel = envOrDefault("CLAUDE_MODEL", cfg.ClaudeModel)
	cfg.ClaudeFastModel = envOrDefault("CLAUDE_FAST_MODEL", cfg.ClaudeFastModel)
	cfg.ClaudeBaseURL = envOrDefault("CLAUDE_BASE_URL", cfg.ClaudeBaseURL)

	cfg.MistralKey = envOrDefault("MISTRAL_API_KEY", cfg.MistralKey)
	cfg.MistralModel = envOrDefault("MISTRAL_MODEL", cfg.MistralModel)
	cfg.MistralFastModel = envOrDefault("MISTRAL_FAST_MODEL", cfg.MistralFastModel)
	cfg.MistralBaseURL = envOrDefault("MISTRAL_BASE_URL", cfg.MistralBaseURL)

	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)

	var errs []error
	for _, v := range []struct {
		key string
		dst *int
	}{
		{"GENERATE_RATE_LIMIT", &cfg.GenerateRateLimit},
		{"ENHANCE_RATE_LIMIT", &cfg.EnhanceRateLimit},
		{"LOGIN_RATE_LIMIT", &cfg.LoginRateLimit},
		{"GENERATE_STEP_BUDGET", &cfg.StepBudget},
		{"AI_THINKING_BUDGET", &cfg.ThinkingBudget},
		{"AI_FREE_REQUESTS", &cfg.FreeRequests},
	} {
		errs = append(errs, envInt(v.key, v.dst))
	}
	for _, v := range []struct {
		key string
		dst *time.Duration
	}{
		{"GENERATE_RATE_WINDOW", &cfg.GenerateRateWindow},
		{"ENHANCE_RATE_WINDOW", &cfg.EnhanceRateWindow},
		{"SUBSCRIPTION_CACHE_TTL", &cfg.SubscriptionTTL},
		{"TOKEN_TTL", &cfg.TokenTTL},
	} {
		errs = append(errs, envDuration(v.key, v.dst))
	}
	errs = append(errs, envBool("AI_MODERATION", &cfg.AIModeration))
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == defaultDBPassword {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
