package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreMongo    = "mongo"
)

// Answer selection strategies
const (
	StrategyRerank      = "rerank"
	StrategyConfidence  = "confidence"
	StrategyConcatenate = "concatenate"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64
	LogFile     string

	// Chunking and answer selection
	ChunkSize      int
	ChunkOverlap   int
	AnswerStrategy string
	PDFExtractors  []string

	// Extractive QA model
	QAProvider        string // "huggingface" (default), "gemini"
	QAModel           string
	HuggingFaceAPIKey string
	HuggingFaceAPIURL string
	ModelTimeout      time.Duration

	// Embeddings used for reranking
	EmbeddingsProvider         string // "huggingface" (default), "google", "ollama", "none"
	HuggingFaceEmbeddingsModel string
	GoogleEmbeddingsModel      string
	OllamaURL                  string
	OllamaEmbeddingsModel      string
	EmbeddingCacheTTL          time.Duration

	// Gemini
	GeminiAPIKey string
	GeminiModel  string
	GeminiTier   string

	// Persistence
	StoreDriver string
	DatabaseDSN string
	MongoURI    string
	DBName      string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	OTelEndpoint     string
	TraceSampleRatio float64

	MCPAddr string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5175,http://localhost:3000,http://localhost:5173")),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		LogFile:     getEnv("LOG_FILE", ""),

		ChunkSize:      getEnvInt("CHUNK_SIZE", 2000),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 100),
		AnswerStrategy: getEnv("ANSWER_STRATEGY", StrategyRerank),
		PDFExtractors:  splitList(getEnv("PDF_EXTRACTORS", "go-pdf,poppler")),

		QAProvider:        getEnv("QA_PROVIDER", "huggingface"),
		QAModel:           getEnv("QA_MODEL", "deepset/roberta-base-squad2"),
		HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
		HuggingFaceAPIURL: getEnv("HUGGINGFACE_API_URL", "https://api-inference.huggingface.co"),
		ModelTimeout:      getEnvDuration("MODEL_TIMEOUT", 120*time.Second),

		EmbeddingsProvider:         getEnv("EMBEDDINGS_PROVIDER", "huggingface"),
		HuggingFaceEmbeddingsModel: getEnv("HUGGINGFACE_EMBEDDINGS_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		GoogleEmbeddingsModel:      getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OllamaURL:                  getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbeddingsModel:      getEnv("OLLAMA_EMBEDDINGS_MODEL", "nomic-embed-text"),
		EmbeddingCacheTTL:          getEnvDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),

		StoreDriver: getEnv("STORE_DRIVER", StoreMemory),
		DatabaseDSN: getEnv("DATABASE_DSN", "pdfqa.db"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/pdf_qa"),
		DBName:      getEnv("DB_NAME", "pdf_qa"),

		// Redis is optional; an empty URL disables caching and rate limiting
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTelEndpoint:     getEnv("OTEL_EXPORTER_ENDPOINT", ""),
		TraceSampleRatio: getEnvFloat64("TRACE_SAMPLE_RATIO", 1.0),

		MCPAddr: getEnv("MCP_ADDR", "localhost:8081"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the relations between settings that LoadConfig cannot
// express as defaults.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d with CHUNK_SIZE %d", c.ChunkOverlap, c.ChunkSize)
	}

	switch c.AnswerStrategy {
	case StrategyRerank, StrategyConfidence, StrategyConcatenate:
	default:
		return fmt.Errorf("unknown ANSWER_STRATEGY: %s", c.AnswerStrategy)
	}

	switch c.QAProvider {
	case "huggingface":
		if c.HuggingFaceAPIKey == "" {
			return fmt.Errorf("HUGGINGFACE_API_KEY is required for QA_PROVIDER=huggingface - set it in .env file")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for QA_PROVIDER=gemini - set it in .env file")
		}
	default:
		return fmt.Errorf("unknown QA_PROVIDER: %s", c.QAProvider)
	}

	switch c.EmbeddingsProvider {
	case "huggingface":
		if c.HuggingFaceAPIKey == "" {
			return fmt.Errorf("HUGGINGFACE_API_KEY is required for EMBEDDINGS_PROVIDER=huggingface")
		}
	case "google":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for EMBEDDINGS_PROVIDER=google")
		}
	case "ollama", "none":
	default:
		return fmt.Errorf("unknown EMBEDDINGS_PROVIDER: %s", c.EmbeddingsProvider)
	}

	switch c.StoreDriver {
	case StoreMemory, StoreSQLite, StorePostgres, StoreMySQL, StoreMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER: %s", c.StoreDriver)
	}

	if len(c.PDFExtractors) == 0 {
		return fmt.Errorf("PDF_EXTRACTORS must name at least one method")
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
