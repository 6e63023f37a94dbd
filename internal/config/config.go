package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini    string
	AnswerEventName string // watermill topic for completed answers
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
}

// PipelineConfig carries the retrieval and validation tunables.
// Defaults follow the shipped policy corpus; override per deployment.
type PipelineConfig struct {
	TopK                int
	VectorThreshold     float64
	RelaxedThreshold    float64
	RRFConstant         int
	VectorWeight        float64
	LexicalWeight       float64
	MaxContextTokens    int
	MinResults          int
	MinContextTokens    int
	QualityFloor        float64
	MaxExpansions       int
	ExpandSeedChunks    int
	AdjacentWindow      int
	AcceptThreshold     float64
	FormatWeight        float64
	CitationWeight      float64
	AlignmentWeight     float64
	FaithfulnessWeight  float64
	MaxRegenerations    int
	GenerationTimeoutMs int
	EmbeddingTimeoutMs  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:    getEnv("GOOGLE_GEMINI_API_KEY", ""),
			AnswerEventName: getEnv("ANSWER_COMPLETED_TOPIC_NAME", "ANSWER_COMPLETED"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
		},
		Pipeline: PipelineConfig{
			TopK:                getEnvAsInt("SEARCH_TOP_K", 10),
			VectorThreshold:     getEnvAsFloat("VECTOR_SIMILARITY_THRESHOLD", 0.7),
			RelaxedThreshold:    getEnvAsFloat("VECTOR_RELAXED_THRESHOLD", 0.3),
			RRFConstant:         getEnvAsInt("RRF_CONSTANT", 60),
			VectorWeight:        getEnvAsFloat("RRF_VECTOR_WEIGHT", 0.7),
			LexicalWeight:       getEnvAsFloat("RRF_LEXICAL_WEIGHT", 0.3),
			MaxContextTokens:    getEnvAsInt("MAX_CONTEXT_TOKENS", 20000),
			MinResults:          getEnvAsInt("JUDGE_MIN_RESULTS", 3),
			MinContextTokens:    getEnvAsInt("JUDGE_MIN_TOKENS", 500),
			QualityFloor:        getEnvAsFloat("JUDGE_QUALITY_FLOOR", 0.01),
			MaxExpansions:       getEnvAsInt("MAX_EXPANSIONS", 3),
			ExpandSeedChunks:    getEnvAsInt("EXPAND_SEED_CHUNKS", 3),
			AdjacentWindow:      getEnvAsInt("EXPAND_ADJACENT_WINDOW", 2),
			AcceptThreshold:     getEnvAsFloat("VALIDATION_ACCEPT_THRESHOLD", 0.7),
			FormatWeight:        getEnvAsFloat("VALIDATION_FORMAT_WEIGHT", 0.10),
			CitationWeight:      getEnvAsFloat("VALIDATION_CITATION_WEIGHT", 0.20),
			AlignmentWeight:     getEnvAsFloat("VALIDATION_ALIGNMENT_WEIGHT", 0.30),
			FaithfulnessWeight:  getEnvAsFloat("VALIDATION_FAITHFULNESS_WEIGHT", 0.40),
			MaxRegenerations:    getEnvAsInt("MAX_REGENERATIONS", 2),
			GenerationTimeoutMs: getEnvAsInt("GENERATION_TIMEOUT_MS", 120000),
			EmbeddingTimeoutMs:  getEnvAsInt("EMBEDDING_TIMEOUT_MS", 15000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
