// Package config loads service configuration from an optional JSON file and
// CONJUGO_-prefixed environment variables, environment winning.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for conjugo.
type Config struct {
	LLM        LLMConfig        `json:"llm"`
	Database   DatabaseConfig   `json:"database"`
	Broker     BrokerConfig     `json:"broker"`
	Server     ServerConfig     `json:"server"`
	Generation GenerationConfig `json:"generation"`
	Sentry     SentryConfig     `json:"sentry"`
}

// LLMConfig holds the OpenAI-compatible completion API configuration.
type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	MaxRetries  int     `json:"max_retries"`
}

type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

type BrokerConfig struct {
	// Brokers are the bootstrap endpoints, host:port.
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
	// TopicsFile is the declarative topic manifest applied at boot.
	TopicsFile string `json:"topics_file"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// GenerationConfig tunes the worker pool and the problem pool.
type GenerationConfig struct {
	WorkerCount int `json:"worker_count"`
	// MessageTimeoutMs bounds handling of one generation message.
	MessageTimeoutMs int `json:"message_timeout_ms"`
	// VirtualStalenessDays is the age assigned to never-served problems in
	// the selection score.
	VirtualStalenessDays float64 `json:"virtual_staleness_days"`
	// RequestExpiryMinutes is the sweeper horizon; values under 30 are
	// raised to 30.
	RequestExpiryMinutes int `json:"request_expiry_minutes"`
	// SweepIntervalSeconds is how often the sweeper runs.
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
}

type SentryConfig struct {
	DSN string `json:"dsn"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:         "http://localhost:8000/v1",
			Model:       "Qwen/Qwen3-8B-AWQ",
			MaxTokens:   1024,
			Temperature: 0.7,
			MaxRetries:  2,
		},
		Database: DatabaseConfig{
			PostgresURL: "postgres://localhost:5432/conjugo",
		},
		Broker: BrokerConfig{
			Brokers:    []string{"localhost:9092"},
			Topic:      "problem-generation-requests",
			TopicsFile: "config/topics.yaml",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Generation: GenerationConfig{
			WorkerCount:          2,
			MessageTimeoutMs:     60000,
			VirtualStalenessDays: 3,
			RequestExpiryMinutes: 30,
			SweepIntervalSeconds: 300,
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from the config file and environment variables
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := configPath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", path, err)
			}
		}
	}

	envString("CONJUGO_LLM_URL", &cfg.LLM.URL)
	envString("CONJUGO_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("CONJUGO_LLM_MODEL", &cfg.LLM.Model)
	envInt("CONJUGO_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("CONJUGO_LLM_TEMPERATURE", &cfg.LLM.Temperature)
	envInt("CONJUGO_LLM_MAX_RETRIES", &cfg.LLM.MaxRetries)

	envString("CONJUGO_POSTGRES_URL", &cfg.Database.PostgresURL)

	envStringSlice("CONJUGO_BROKERS", &cfg.Broker.Brokers)
	envString("CONJUGO_TOPIC", &cfg.Broker.Topic)
	envString("CONJUGO_TOPICS_FILE", &cfg.Broker.TopicsFile)

	envString("CONJUGO_SERVER_HOST", &cfg.Server.Host)
	envInt("CONJUGO_SERVER_PORT", &cfg.Server.Port)

	envInt("CONJUGO_WORKER_COUNT", &cfg.Generation.WorkerCount)
	envInt("CONJUGO_MESSAGE_TIMEOUT_MS", &cfg.Generation.MessageTimeoutMs)
	envFloat("CONJUGO_VIRTUAL_STALENESS_DAYS", &cfg.Generation.VirtualStalenessDays)
	envInt("CONJUGO_REQUEST_EXPIRY_MINUTES", &cfg.Generation.RequestExpiryMinutes)
	envInt("CONJUGO_SWEEP_INTERVAL_SECONDS", &cfg.Generation.SweepIntervalSeconds)

	envString("CONJUGO_SENTRY_DSN", &cfg.Sentry.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath returns the config file path, or "" when none is configured.
func configPath() string {
	if path := os.Getenv("CONJUGO_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("conjugo.json"); err == nil {
		return "conjugo.json"
	}
	return ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	if c.Database.PostgresURL == "" {
		errs = append(errs, "PostgreSQL URL is required")
	} else if !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if len(c.Broker.Brokers) == 0 {
		errs = append(errs, "at least one broker endpoint is required")
	}
	if c.Broker.Topic == "" {
		errs = append(errs, "broker topic is required")
	}

	if c.Generation.WorkerCount < 0 {
		errs = append(errs, "worker_count must not be negative")
	}
	if c.Generation.VirtualStalenessDays <= 0 {
		errs = append(errs, "virtual_staleness_days must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
