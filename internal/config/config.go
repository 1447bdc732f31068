package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	LogLevel    slog.Level

	// AnthropicAPIKey enables the LLM decision provider. Empty means the
	// game must run with the offline random provider.
	AnthropicAPIKey string
	ModelName       string

	// RedisURL enables event streaming and snapshots. Empty disables Redis.
	RedisURL string

	MaxRounds  int
	RandomSeed int64
}

func Load() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		ModelName:       getEnv("MODEL_NAME", "claude-3-5-haiku-20241022"),
		RedisURL:        getEnv("REDIS_URL", ""),
		MaxRounds:       getEnvInt("MAX_ROUNDS", 6),
		RandomSeed:      int64(getEnvInt("RANDOM_SEED", 42)),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
