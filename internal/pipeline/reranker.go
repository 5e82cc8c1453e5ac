package pipeline

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/embeddings"
)

// Reranker rescores candidates by cosine similarity against a fresh
// query embedding, replacing the store-reported scores with a scale
// that is uniform across collections.
type Reranker struct {
	embedder embeddings.Provider
	logger   *zap.Logger
}

// NewReranker creates a reranker. The logger may be nil.
func NewReranker(embedder embeddings.Provider, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{embedder: embedder, logger: logger}
}

// Rerank returns candidates sorted by descending similarity to the
// query. An empty input returns empty without any embedding calls.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Reranker.Rerank")
	defer span.End()
	span.SetAttributes(attribute.Int("candidate_count", len(candidates)))

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed during rerank", zap.Error(err))
		queryVec = nil
	}

	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		vec, err := r.embedder.EmbedQuery(ctx, out[i].Text)
		if err != nil {
			r.logger.Warn("candidate embedding failed during rerank", zap.Error(err))
			vec = nil
		}
		out[i].Score = cosine(vec, queryVec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
