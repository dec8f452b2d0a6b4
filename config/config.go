// Package config loads application settings from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	VectorStoreMemory   = "memory"
	VectorStorePostgres = "postgres"
)

type LLMConfig struct {
	Provider string `envconfig:"LLM_PROVIDER" default:"openai"`
	Model    string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
}

type EmbeddingsConfig struct {
	Provider  string `envconfig:"EMBEDDINGS_PROVIDER" default:"openai"`
	Model     string `envconfig:"EMBEDDINGS_MODEL" default:"text-embedding-3-small"`
	Dimension int    `envconfig:"EMBEDDINGS_DIMENSION" default:"1536"`
}

type RetrievalConfig struct {
	ChunkSize    int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK         int    `envconfig:"TOP_K" default:"5"`
	VectorStore  string `envconfig:"VECTOR_STORE" default:"memory"`
}

type BookingConfig struct {
	// KnownServices is a soft whitelist: a service outside it produces a
	// warning in the draft summary, never a rejection.
	KnownServices  []string `envconfig:"KNOWN_SERVICES" default:"general checkup,cardiology consultation,dermatology,dental cleaning,physiotherapy"`
	PhoneMinDigits int      `envconfig:"PHONE_MIN_DIGITS" default:"7"`
	PhoneMaxDigits int      `envconfig:"PHONE_MAX_DIGITS" default:"15"`
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	DataDir     string `envconfig:"DATA_DIR" default:"./docs"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"postgres://localhost:5432/booking-agent?sslmode=disable"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OllamaHost    string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`

	LLM        LLMConfig
	Embeddings EmbeddingsConfig
	Retrieval  RetrievalConfig
	Booking    BookingConfig
	SMTP       SMTPConfig

	// HistoryLimit bounds the per-conversation message window kept in memory.
	HistoryLimit int `envconfig:"HISTORY_LIMIT" default:"25"`

	// Collaborator calls (completion, embeddings, storage, email) get one
	// bounded attempt plus a single retry.
	CollaboratorTimeoutSecs int `envconfig:"COLLABORATOR_TIMEOUT_SECS" default:"10"`
}

// Load reads .env when present, then populates Config from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LLM.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	switch c.Embeddings.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embeddings.Provider)
	}
	switch c.Retrieval.VectorStore {
	case VectorStoreMemory, VectorStorePostgres:
	default:
		return fmt.Errorf("unknown vector store: %s", c.Retrieval.VectorStore)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	return nil
}
