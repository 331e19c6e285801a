// Package config provides configuration for the chat backend.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// LLM gateway (OpenRouter-compatible)
	GatewayBaseURL string
	GatewayAPIKey  string
	GatewayTimeout time.Duration

	// Vector store
	MemoryBackend string // "qdrant" or "embedded"
	QdrantURL     string
	QdrantAPIKey  string

	// Model selection defaults
	FallbackModel       string
	MaxPricePerMillion  float64
	MinContextLength    int
	PreferredProviders  []string

	// Completion parameters
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:        getEnv("DATABASE_URL", "file:jetaide.db?cache=shared&mode=rwc"),
		GatewayBaseURL:     getEnv("GATEWAY_BASE_URL", "https://openrouter.ai/api/v1"),
		GatewayAPIKey:      getEnv("GATEWAY_API_KEY", ""),
		GatewayTimeout:     time.Duration(getEnvInt("GATEWAY_TIMEOUT_MS", 60000)) * time.Millisecond,
		MemoryBackend:      getEnv("MEMORY_BACKEND", "embedded"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
		FallbackModel:      getEnv("FALLBACK_MODEL", "anthropic/claude-3.5-sonnet"),
		MaxPricePerMillion: getEnvFloat("MAX_PRICE_PER_MILLION", 5.0),
		MinContextLength:   getEnvInt("MIN_CONTEXT_LENGTH", 8000),
		PreferredProviders: getEnvList("PREFERRED_PROVIDERS", []string{"anthropic", "openai"}),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "openai/text-embedding-ada-002"),
		Temperature:        getEnvFloat("TEMPERATURE", 0.7),
		MaxTokens:          getEnvInt("MAX_TOKENS", 2048),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}
