// Package config loads bot configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Platform settings
	BotToken       string
	CommandPrefix  string
	MessageCeiling int // hard platform limit per outbound message
	TruncateAt     int // cut point before appending the truncation marker

	// Gemini settings
	GeminiAPIKey     string
	Models           []string // ordered failover list
	OpenAIAPIKey     string   // optional last-resort provider
	MaxDailyRequests int      // per-model completion quota (0 = unlimited)

	// Session settings
	SessionTimeout time.Duration

	// News settings
	FeedsConfigPath    string
	NewsTopicDefault   string
	NewsItems          int // items per on-demand digest
	BroadcastItems     int // items per scheduled digest
	MaxCandidateAge    time.Duration
	AggregationTimeout time.Duration
	TrendingFanout     int // secondary searches seeded from trending titles

	// Scheduler settings
	BroadcastInterval time.Duration

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Shortener settings
	ShortenerEnabled bool
	ShortenerTTL     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		CommandPrefix:      "!",
		MessageCeiling:     2000,
		TruncateAt:         1900,
		Models:             []string{"gemini-2.5-flash", "gemini-1.5-flash"},
		MaxDailyRequests:   0,
		SessionTimeout:     3600 * time.Second,
		FeedsConfigPath:    "configs/feeds.yaml",
		NewsTopicDefault:   "tecnologia",
		NewsItems:          5,
		BroadcastItems:     10,
		MaxCandidateAge:    24 * time.Hour,
		AggregationTimeout: 15 * time.Second,
		TrendingFanout:     3,
		BroadcastInterval:  2 * time.Hour,
		RequestTimeout:     30 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         5 * time.Second,
		ShortenerEnabled:   true,
		ShortenerTTL:       48 * time.Hour,
	}

	// Load from environment
	cfg.BotToken = os.Getenv("BOT_TOKEN")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.NewsTopicDefault = getEnvOrDefault("NEWS_TOPIC_DEFAULT", cfg.NewsTopicDefault)
	cfg.NewsItems = getEnvIntOrDefault("NEWS_ITEMS", cfg.NewsItems)
	cfg.BroadcastItems = getEnvIntOrDefault("BROADCAST_ITEMS", cfg.BroadcastItems)
	cfg.TrendingFanout = getEnvIntOrDefault("TRENDING_FANOUT", cfg.TrendingFanout)
	cfg.MaxDailyRequests = getEnvIntOrDefault("MAX_DAILY_REQUESTS", cfg.MaxDailyRequests)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if prefix := os.Getenv("COMMAND_PREFIX"); prefix != "" {
		cfg.CommandPrefix = prefix
	}

	if models := os.Getenv("GEMINI_MODELS"); models != "" {
		cfg.Models = cfg.Models[:0]
		for _, m := range strings.Split(models, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.Models = append(cfg.Models, m)
			}
		}
	}

	if v := os.Getenv("SESSION_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.SessionTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("BROADCAST_INTERVAL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.BroadcastInterval = time.Duration(val) * time.Minute
		}
	}
	if v := os.Getenv("AGGREGATION_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.AggregationTimeout = time.Duration(val) * time.Second
		}
	}

	if v := os.Getenv("SHORTENER_ENABLED"); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			cfg.ShortenerEnabled = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("GEMINI_MODELS must list at least one model")
	}
	if c.TruncateAt >= c.MessageCeiling {
		return fmt.Errorf("truncate point %d must be below the message ceiling %d", c.TruncateAt, c.MessageCeiling)
	}
	return nil
}
