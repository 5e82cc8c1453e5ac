// Package completion provides a client for OpenAI-compatible chat
// completion endpoints. The pipeline uses it for answer generation and
// for note synthesis; callers are expected to treat failures as
// degradable rather than fatal.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// systemPrompt frames every completion request.
	systemPrompt = "You are a helpful assistant that uses retrieved context."

	defaultTimeout = 60 * time.Second

	maxErrorBody = 4 * 1024
)

var (
	// ErrInvalidConfig indicates the client configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid completion config")

	// ErrCompletionFailed indicates the completion request failed.
	ErrCompletionFailed = errors.New("completion request failed")

	// ErrEmptyChoices indicates the endpoint returned no choices.
	ErrEmptyChoices = errors.New("completion returned no choices")
)

// Client generates text from a prompt.
type Client interface {
	// Complete sends the prompt and returns the generated text with
	// surrounding whitespace trimmed.
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Config holds the completion client settings.
type Config struct {
	// BaseURL is the API root, e.g. https://openrouter.ai/api/v1.
	BaseURL string
	// Model is the model identifier sent with each request.
	Model string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Timeout bounds each HTTP request. Defaults to 60s.
	Timeout time.Duration
}

// HTTPClient calls an OpenAI-compatible /chat/completions endpoint.
type HTTPClient struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a completion client. The logger may be nil.
func NewHTTPClient(config Config, logger *zap.Logger) (*HTTPClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Client.
func (c *HTTPClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("completion request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("model", c.config.Model))
		return "", fmt.Errorf("%w: status %d: %s", ErrCompletionFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrCompletionFailed, err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
