package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/embeddings"
)

// Verifier drops answer sentences that no working-set text supports.
// A sentence survives only when its best cosine similarity against the
// context texts reaches the threshold.
type Verifier struct {
	embedder  embeddings.Provider
	threshold float64
	logger    *zap.Logger
}

// NewVerifier creates a verifier. The logger may be nil.
func NewVerifier(embedder embeddings.Provider, threshold float64, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{embedder: embedder, threshold: threshold, logger: logger}
}

// Filter returns the grounded sentences, deduplicated in order. Either
// input being empty yields an empty result.
func (v *Verifier) Filter(ctx context.Context, sentences, contextTexts []string) []string {
	if len(sentences) == 0 || len(contextTexts) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Verifier.Filter")
	defer span.End()
	span.SetAttributes(attribute.Int("sentence_count", len(sentences)))

	contextVecs := make([][]float32, len(contextTexts))
	for i, text := range contextTexts {
		vec, err := v.embedder.EmbedQuery(ctx, text)
		if err != nil {
			v.logger.Warn("context embedding failed during verification", zap.Error(err))
		}
		contextVecs[i] = vec
	}

	seen := make(map[string]bool)
	var kept []string
	for _, sentence := range sentences {
		vec, err := v.embedder.EmbedQuery(ctx, sentence)
		if err != nil {
			v.logger.Warn("sentence embedding failed during verification", zap.Error(err))
			continue
		}
		best := 0.0
		for _, ctxVec := range contextVecs {
			if sim := cosine(vec, ctxVec); sim > best {
				best = sim
			}
		}
		if best >= v.threshold && !seen[sentence] {
			seen[sentence] = true
			kept = append(kept, sentence)
		}
	}
	span.SetAttributes(attribute.Int("kept_count", len(kept)))
	return kept
}
