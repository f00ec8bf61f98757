package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Graph store backends
const (
	StoreNeo4j  = "neo4j"
	StoreMemory = "memory"
)

// Survey extractors
const (
	ExtractorRules = "rules"
	ExtractorLLM   = "llm"
)

// Lock backends
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Graph store
	GraphStore    string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// AI
	LLMBaseURL string
	ModelID    string
	LLMAPIKey  string

	// Circuit breaker around the generative service
	LLMBreakerMaxFailures uint32
	LLMBreakerTimeout     time.Duration

	// Pipeline
	Extractor  string
	Scaffold   bool
	TablesPath string // optional YAML override for the lookup tables

	// Per-user serialization
	LockBackend string
	RedisAddr   string
	LockTTL     time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", ""),
		GraphStore:            strings.ToLower(getEnv("GRAPH_STORE", StoreNeo4j)),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:         getEnv("NEO4J_DATABASE", ""),
		LLMBaseURL:            getEnv("LLM_BASE_URL", "http://localhost:4000"),
		ModelID:               getEnv("MODEL_ID", "gpt-4o-mini"),
		LLMAPIKey:             getEnv("LLM_API_KEY", ""),
		LLMBreakerMaxFailures: uint32(getEnvInt("LLM_BREAKER_MAX_FAILURES", 5)),
		LLMBreakerTimeout:     time.Duration(getEnvInt("LLM_BREAKER_TIMEOUT_SECONDS", 60)) * time.Second,
		Extractor:             strings.ToLower(getEnv("EXTRACTOR", ExtractorRules)),
		Scaffold:              getEnvBool("GRAPH_SCAFFOLD", true),
		TablesPath:            getEnv("TABLES_PATH", ""),
		LockBackend:           strings.ToLower(getEnv("LOCK_BACKEND", LockMemory)),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		LockTTL:               time.Duration(getEnvInt("LOCK_TTL_SECONDS", 30)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.GraphStore {
	case StoreNeo4j:
		if c.Neo4jURI == "" {
			return fmt.Errorf("NEO4J_URI is required")
		}
		if c.Neo4jUser == "" {
			return fmt.Errorf("NEO4J_USER is required")
		}
		if c.Neo4jPassword == "" {
			return fmt.Errorf("NEO4J_PASSWORD is required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("GRAPH_STORE must be %q or %q, got %q", StoreNeo4j, StoreMemory, c.GraphStore)
	}

	switch c.Extractor {
	case ExtractorRules, ExtractorLLM:
	default:
		return fmt.Errorf("EXTRACTOR must be %q or %q, got %q", ExtractorRules, ExtractorLLM, c.Extractor)
	}

	switch c.LockBackend {
	case LockMemory:
	case LockRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when LOCK_BACKEND=redis")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", LockMemory, LockRedis, c.LockBackend)
	}

	if c.ModelID == "" {
		return fmt.Errorf("MODEL_ID is required")
	}
	// LLM_API_KEY is optional: a local OpenAI-compatible proxy accepts any key
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LLMEnabled reports whether a generative service endpoint is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMBaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
