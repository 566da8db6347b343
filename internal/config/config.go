// Package config loads server settings from the environment with
// sensible defaults for local development.
package config

import (
	"fmt"
	"os"
)

// Config holds all tunables for the server and ingest commands.
type Config struct {
	// Model generation
	Model     string
	MaxRounds int

	// Document processing
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	MaxResults int

	// Sessions
	MaxHistory int

	// Qdrant
	QdrantHost string
	QdrantPort int

	// Serving
	Port       string
	ServerMode bool

	// Ingest
	DocsPath string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Model:        getEnv("MODEL", "gpt-4o"),
		MaxRounds:    getEnvInt("MAX_ROUNDS", 2),
		ChunkSize:    getEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),
		MaxResults:   getEnvInt("MAX_RESULTS", 5),
		MaxHistory:   getEnvInt("MAX_HISTORY", 2),
		QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:   getEnvInt("QDRANT_PORT", 6334),
		Port:         getEnv("PORT", "8000"),
		ServerMode:   getEnv("SERVER_MODE", "false") == "true",
		DocsPath:     getEnv("DOCS_PATH", "./docs"),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
