package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(Config{BaseURL: srv.URL, Model: "test-model", APIKey: "key"}, nil)
	require.NoError(t, err)
	return client
}

func TestCompleteReturnsTrimmedContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "What is Go?", req.Messages[1].Content)
		assert.Equal(t, 128, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Go is a language.  "}}]}`))
	})

	out, err := client.Complete(context.Background(), "What is Go?", 128, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", out)
}

func TestCompleteNonOKStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), "q", 16, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompletionFailed))
	assert.Contains(t, err.Error(), "429")
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), "q", 16, 0)
	assert.True(t, errors.Is(err, ErrEmptyChoices))
}

func TestNewHTTPClientValidation(t *testing.T) {
	_, err := NewHTTPClient(Config{Model: "m"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = NewHTTPClient(Config{BaseURL: "http://x"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
