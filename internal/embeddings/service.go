package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the full feature-extraction endpoint URL.
	BaseURL string

	// Model is the embedding model name (informational).
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Dimension is the expected embedding dimensionality.
	Dimension int

	// MaxRetries is the number of attempts per text.
	MaxRetries int

	// Backoff is the initial retry delay; it doubles on each attempt.
	Backoff time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Dimension == 0 {
		c.Dimension = 384
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Backoff == 0 {
		c.Backoff = 600 * time.Millisecond
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// Service embeds text through a feature-extraction HTTP endpoint.
//
// Texts are sent one request at a time (batched inputs trigger 400s on some
// router backends). Token-level responses are mean-pooled into one vector.
// Transient failures are retried with exponential backoff.
type Service struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// NewService creates a new embedding service with the given configuration.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// Dimension returns the configured embedding dimensionality.
func (s *Service) Dimension() int {
	return s.config.Dimension
}

// extractionRequest is the request body for the feature-extraction endpoint.
type extractionRequest struct {
	Inputs string `json:"inputs"`
}

// EmbedQuery generates an embedding for a single text.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	return s.embedWithRetry(ctx, text)
}

// EmbedDocuments generates embeddings for multiple texts, one per input.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.embedWithRetry(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// embedWithRetry embeds one text, retrying with exponential backoff.
func (s *Service) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	backoff := s.config.Backoff
	var lastErr error

	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		vec, err := s.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		s.logger.Warn("embedding request failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", s.config.MaxRetries),
			zap.Error(err))

		if attempt == s.config.MaxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, lastErr)
}

// embedOnce performs a single embedding request.
func (s *Service) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(extractionRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	vec, err := parseVector(raw)
	if err != nil {
		return nil, err
	}
	if len(vec) != s.config.Dimension {
		return nil, fmt.Errorf("unexpected embedding dimension %d (want %d)", len(vec), s.config.Dimension)
	}
	return vec, nil
}

// parseVector decodes an extraction response. The endpoint returns either a
// flat vector, a token-level matrix (mean-pooled here), or a single-element
// batch wrapping one of those.
func parseVector(raw []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}

	var matrix [][]float32
	if err := json.Unmarshal(raw, &matrix); err == nil {
		return meanPool(matrix)
	}

	var batch [][][]float32
	if err := json.Unmarshal(raw, &batch); err == nil && len(batch) == 1 {
		return meanPool(batch[0])
	}

	return nil, fmt.Errorf("unrecognized embedding response shape")
}

// meanPool averages token-level embeddings into one vector. A single-row
// matrix is a batched flat vector and is returned as-is.
func meanPool(matrix [][]float32) ([]float32, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	if len(matrix) == 1 {
		return matrix[0], nil
	}

	dim := len(matrix[0])
	pooled := make([]float32, dim)
	for _, row := range matrix {
		if len(row) != dim {
			return nil, fmt.Errorf("ragged embedding matrix")
		}
		for i, v := range row {
			pooled[i] += v
		}
	}
	n := float32(len(matrix))
	for i := range pooled {
		pooled[i] /= n
	}
	return pooled, nil
}
