package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for answerd.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Completion  CompletionConfig  `koanf:"completion"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	Ingest      IngestConfig      `koanf:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled        bool    `koanf:"enabled"`
	Endpoint       string  `koanf:"endpoint"`
	Protocol       string  `koanf:"protocol"` // "grpc" or "http/protobuf"
	Insecure       bool    `koanf:"insecure"`
	ServiceName    string  `koanf:"service_name"`
	ServiceVersion string  `koanf:"service_version"`
	SamplingRate   float64 `koanf:"sampling_rate"`
}

// EmbeddingsConfig holds settings for the text-embedding provider.
type EmbeddingsConfig struct {
	// BaseURL is the full feature-extraction endpoint URL.
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model name (informational, used for logging).
	Model string `koanf:"model"`

	// APIKey is sent as a bearer token when set.
	APIKey string `koanf:"api_key"`

	// Dimension is the embedding dimensionality. Must match the model.
	Dimension int `koanf:"dimension"`

	// MaxRetries is the number of retry attempts per text.
	MaxRetries int `koanf:"max_retries"`

	Timeout time.Duration `koanf:"timeout"`
}

// CompletionConfig holds settings for the text-completion provider.
type CompletionConfig struct {
	// BaseURL is the OpenAI-compatible API base (e.g. https://openrouter.ai/api/v1).
	BaseURL string `koanf:"base_url"`

	Model  string `koanf:"model"`
	APIKey string `koanf:"api_key"`

	Timeout time.Duration `koanf:"timeout"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string `koanf:"provider"`

	Chromem ChromemConfig `koanf:"chromem"`
	Qdrant  QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig configures the Qdrant gRPC client.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey string `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

// PipelineConfig holds the retrieval pipeline tuning knobs.
type PipelineConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a candidate
	// to be kept after reranking.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// TopK is the per-collection candidate cap after thresholding.
	TopK int `koanf:"top_k"`

	// FinalK is the fused working-set cap.
	FinalK int `koanf:"final_k"`

	// MaxNewTokens bounds each completion call.
	MaxNewTokens int `koanf:"max_new_tokens"`

	// VerifyThreshold is the minimum cosine similarity for a generated
	// sentence to count as grounded in the retrieved context.
	VerifyThreshold float64 `koanf:"verify_threshold"`

	// MaxNotes caps the persisted notes collection.
	MaxNotes int `koanf:"max_notes"`

	DocumentsCollection string `koanf:"documents_collection"`
	NotesCollection     string `koanf:"notes_collection"`
}

// IngestConfig holds document ingestion settings.
type IngestConfig struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int `koanf:"chunk_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8800
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "answerd"
	}
	if c.Telemetry.Protocol == "" {
		c.Telemetry.Protocol = "grpc"
	}
	if c.Telemetry.SamplingRate == 0 {
		c.Telemetry.SamplingRate = 1.0
	}

	if c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = "http://localhost:8080/embed"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embeddings.Dimension == 0 {
		c.Embeddings.Dimension = 384
	}
	if c.Embeddings.MaxRetries == 0 {
		c.Embeddings.MaxRetries = 3
	}
	if c.Embeddings.Timeout == 0 {
		c.Embeddings.Timeout = 30 * time.Second
	}

	if c.Completion.BaseURL == "" {
		c.Completion.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.Completion.Model == "" {
		c.Completion.Model = "meta-llama/llama-3.3-8b-instruct:free"
	}
	if c.Completion.Timeout == 0 {
		c.Completion.Timeout = 60 * time.Second
	}

	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "chromem"
	}
	if c.VectorStore.Chromem.Path == "" {
		c.VectorStore.Chromem.Path = "~/.config/answerd/vectorstore"
	}
	if c.VectorStore.Qdrant.Host == "" {
		c.VectorStore.Qdrant.Host = "localhost"
	}
	if c.VectorStore.Qdrant.Port == 0 {
		c.VectorStore.Qdrant.Port = 6334
	}

	if c.Pipeline.SimilarityThreshold == 0 {
		c.Pipeline.SimilarityThreshold = 0.5
	}
	if c.Pipeline.TopK == 0 {
		c.Pipeline.TopK = 3
	}
	if c.Pipeline.FinalK == 0 {
		c.Pipeline.FinalK = 4
	}
	if c.Pipeline.MaxNewTokens == 0 {
		c.Pipeline.MaxNewTokens = 128
	}
	if c.Pipeline.VerifyThreshold == 0 {
		c.Pipeline.VerifyThreshold = 0.5
	}
	if c.Pipeline.MaxNotes == 0 {
		c.Pipeline.MaxNotes = 100
	}
	if c.Pipeline.DocumentsCollection == "" {
		c.Pipeline.DocumentsCollection = "documents"
	}
	if c.Pipeline.NotesCollection == "" {
		c.Pipeline.NotesCollection = "notes"
	}

	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 1200
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unknown vectorstore provider %q", c.VectorStore.Provider)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry enabled but endpoint is empty")
	}

	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embeddings.Dimension)
	}

	if c.Pipeline.SimilarityThreshold < -1 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in [-1, 1], got %f", c.Pipeline.SimilarityThreshold)
	}
	if c.Pipeline.VerifyThreshold < -1 || c.Pipeline.VerifyThreshold > 1 {
		return fmt.Errorf("verify threshold must be in [-1, 1], got %f", c.Pipeline.VerifyThreshold)
	}
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Pipeline.TopK)
	}
	if c.Pipeline.FinalK <= 0 {
		return fmt.Errorf("final_k must be positive, got %d", c.Pipeline.FinalK)
	}
	if c.Pipeline.MaxNotes <= 0 {
		return fmt.Errorf("max_notes must be positive, got %d", c.Pipeline.MaxNotes)
	}
	if c.Pipeline.DocumentsCollection == c.Pipeline.NotesCollection {
		return fmt.Errorf("documents and notes collections must differ")
	}

	return nil
}
