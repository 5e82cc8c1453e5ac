package embeddings

import (
	"context"

	"go.uber.org/zap"
)

// Safe wraps a Provider so that embedding failures degrade to zero vectors
// instead of propagating. A zero vector scores near zero similarity against
// everything, so a mis-embedded text falls out of retrieval naturally rather
// than crashing the request.
type Safe struct {
	inner  Provider
	logger *zap.Logger
}

// NewSafe wraps the given provider. The logger may be nil.
func NewSafe(inner Provider, logger *zap.Logger) *Safe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Safe{inner: inner, logger: logger}
}

// EmbedQuery embeds one text, returning a zero vector on failure.
func (s *Safe) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.inner.EmbedQuery(ctx, text)
	if err != nil {
		s.logger.Warn("query embedding failed, using zero vector", zap.Error(err))
		return make([]float32, s.inner.Dimension()), nil
	}
	return vec, nil
}

// EmbedDocuments embeds texts, substituting a zero vector for any failure.
func (s *Safe) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := s.inner.EmbedDocuments(ctx, texts)
	if err == nil {
		return vecs, nil
	}

	s.logger.Warn("batch embedding failed, using zero vectors",
		zap.Int("count", len(texts)),
		zap.Error(err))

	vecs = make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = make([]float32, s.inner.Dimension())
	}
	return vecs, nil
}

// Dimension returns the wrapped provider's dimensionality.
func (s *Safe) Dimension() int {
	return s.inner.Dimension()
}

// Ensure Safe implements Provider.
var _ Provider = (*Safe)(nil)
