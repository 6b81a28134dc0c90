package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds every tunable of the audit bot. Values come from the
// environment (optionally seeded from a .env file); required API keys are
// validated at load time so a misconfigured process refuses to start instead
// of failing on the first request.
type Settings struct {
	// API keys
	AnthropicAPIKey string
	OpenAIAPIKey    string
	EtherscanAPIKey string // optional, enables ingest-by-address

	// Vector store
	QdrantAddr       string
	CollectionName   string
	EmbeddingModel   string
	EmbeddingDim     uint64
	SimilarityMetric string // cosine, dot or euclid

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval and completion
	TopKResults int
	Temperature float64
	MaxTokens   int

	// Upload limits
	MaxFileSize       int64
	AllowedExtensions []string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// HTTP
	HTTPAddr string
}

// Load reads settings from the environment, seeding it from .env when the
// file exists. It returns an error naming every missing required secret.
func Load() (*Settings, error) {
	_ = godotenv.Load(".env")

	s := &Settings{
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		EtherscanAPIKey:   os.Getenv("ETHERSCAN_API_KEY"),
		QdrantAddr:        envOrDefault("QDRANT_ADDR", "localhost:6334"),
		CollectionName:    envOrDefault("QDRANT_COLLECTION_NAME", "solidity_contracts"),
		EmbeddingModel:    envOrDefault("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingDim:      uint64(envOrDefaultInt("EMBEDDING_DIMENSION", 1536)),
		SimilarityMetric:  envOrDefault("SIMILARITY_METRIC", "cosine"),
		ChunkSize:         envOrDefaultInt("CHUNK_SIZE", 1000),
		ChunkOverlap:      envOrDefaultInt("CHUNK_OVERLAP", 200),
		TopKResults:       envOrDefaultInt("TOP_K_RESULTS", 5),
		Temperature:       envOrDefaultFloat("TEMPERATURE", 0.1),
		MaxTokens:         envOrDefaultInt("MAX_TOKENS", 2000),
		MaxFileSize:       int64(envOrDefaultInt("MAX_FILE_SIZE", 10*1024*1024)),
		AllowedExtensions: []string{".sol", ".txt"},
		RateLimitRequests: envOrDefaultInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envOrDefaultInt("RATE_LIMIT_WINDOW", 3600)) * time.Second,
		HTTPAddr:          envOrDefault("HTTP_ADDR", ":8001"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	var missing []string
	if s.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if s.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", s.ChunkOverlap, s.ChunkSize)
	}

	switch strings.ToLower(s.SimilarityMetric) {
	case "cosine", "dot", "euclid":
	default:
		return fmt.Errorf("unsupported SIMILARITY_METRIC %q (want cosine, dot or euclid)", s.SimilarityMetric)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
