// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process-level configuration. Pipeline policy constants live
// in pipeline.Config; this covers providers, backends, and the listen
// address.
type Config struct {
	Addr string

	// Provider selects the chat model backend: "openai", "anthropic", or
	// "google".
	Provider  string
	ModelName string

	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string

	TavilyAPIKey string

	// EmbeddingModel is the Gemini embedding model used when internal
	// retrieval is enabled.
	EmbeddingModel string

	// Session store backends, tried in order: Redis, SQLite, MySQL. All
	// empty means the in-memory fallback.
	RedisURL   string
	SQLitePath string
	MySQLDSN   string

	// PostgresDSN enables the pgvector knowledge base.
	PostgresDSN string

	RevisionLimit       int
	CompactionThreshold int

	Debug bool
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                getEnv("KNOWBOT_ADDR", ":8080"),
		Provider:            getEnv("KNOWBOT_PROVIDER", "openai"),
		ModelName:           getEnv("KNOWBOT_MODEL", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		GoogleAPIKey:        getEnv("GOOGLE_API_KEY", ""),
		TavilyAPIKey:        getEnv("TAVILY_API_KEY", ""),
		EmbeddingModel:      getEnv("KNOWBOT_EMBEDDING_MODEL", "text-embedding-004"),
		RedisURL:            getEnv("REDIS_URL", ""),
		SQLitePath:          getEnv("KNOWBOT_SQLITE_PATH", ""),
		MySQLDSN:            getEnv("KNOWBOT_MYSQL_DSN", ""),
		PostgresDSN:         getEnv("KNOWBOT_POSTGRES_DSN", ""),
		RevisionLimit:       getEnvInt("KNOWBOT_REVISION_LIMIT", 0),
		CompactionThreshold: getEnvInt("KNOWBOT_COMPACTION_THRESHOLD", 0),
		Debug:               getEnvBool("KNOWBOT_DEBUG", false),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
