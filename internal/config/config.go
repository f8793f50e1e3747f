package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port     int
	DevMode  bool
	LogLevel string

	// Persistence
	DatabasePath string

	// Cache (empty RedisURL = in-memory only)
	RedisURL string

	// Scheduler
	SchedulerTimezone       string
	SchedulerDailyRun       string // "HH:MM"
	PipelineIntervalMinutes int

	// LLM sentiment (empty key = lexicon only)
	LLMAPIKey string
	LLMModel  string

	// Scraping tuning
	MinContentLength     int
	MaxArticleAgeDays    int
	DelayBetweenRequests time.Duration
	MaxRetries           int
	MaxArticlesPerSource int
	QualityThreshold     float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8000),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabasePath: getEnv("DATABASE_PATH", "./data/feargreed.db"),
		RedisURL:     getEnv("REDIS_URL", ""),

		SchedulerTimezone:       getEnv("SCHEDULER_TIMEZONE", "Africa/Casablanca"),
		SchedulerDailyRun:       getEnv("SCHEDULER_DAILY_RUN", "16:00"),
		PipelineIntervalMinutes: getEnvAsInt("PIPELINE_INTERVAL_MINUTES", 10),

		LLMAPIKey: getEnv("LLM_API_KEY", ""),
		LLMModel:  getEnv("LLM_MODEL", "claude-3-5-haiku-latest"),

		MinContentLength:     getEnvAsInt("MIN_CONTENT_LENGTH", 300),
		MaxArticleAgeDays:    getEnvAsInt("MAX_ARTICLE_AGE_DAYS", 7),
		DelayBetweenRequests: time.Duration(getEnvAsInt("DELAY_BETWEEN_REQUESTS_MS", 2000)) * time.Millisecond,
		MaxRetries:           getEnvAsInt("MAX_RETRIES", 3),
		MaxArticlesPerSource: getEnvAsInt("MAX_ARTICLES_PER_SOURCE", 10),
		QualityThreshold:     getEnvAsFloat("QUALITY_THRESHOLD", 0.30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.PipelineIntervalMinutes <= 0 {
		return fmt.Errorf("pipeline interval must be positive, got %d", c.PipelineIntervalMinutes)
	}
	if _, err := time.LoadLocation(c.SchedulerTimezone); err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", c.SchedulerTimezone, err)
	}
	if _, _, err := ParseDailyRun(c.SchedulerDailyRun); err != nil {
		return fmt.Errorf("invalid scheduler daily run %q: %w", c.SchedulerDailyRun, err)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("quality threshold must be in [0,1], got %f", c.QualityThreshold)
	}
	return nil
}

// LLMEnabled reports whether the LLM sentiment path is configured
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

// ParseDailyRun parses an "HH:MM" daily run time
func ParseDailyRun(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range: %s", s)
	}
	return hour, minute, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
