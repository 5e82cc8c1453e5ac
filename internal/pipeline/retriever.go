package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/embeddings"
	"github.com/hollowaylabs/answerd/internal/vectorstore"
)

// Retriever pulls candidates from one collection by vector similarity.
type Retriever struct {
	store      vectorstore.Store
	embedder   embeddings.Provider
	collection string
	kind       Kind
	logger     *zap.Logger
}

// NewRetriever creates a retriever over the given collection. The
// logger may be nil.
func NewRetriever(store vectorstore.Store, embedder embeddings.Provider, collection string, kind Kind, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		store:      store,
		embedder:   embedder,
		collection: collection,
		kind:       kind,
		logger:     logger,
	}
}

// Retrieve embeds the query once and returns up to limit candidates.
// Any failure degrades to an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) []Candidate {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", r.collection),
		attribute.Int("limit", limit),
	)

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("query embedding failed, skipping retrieval",
			zap.String("collection", r.collection), zap.Error(err))
		return nil
	}

	hits, err := r.store.SearchVectors(ctx, r.collection, vector, limit)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("vector search failed, skipping retrieval",
			zap.String("collection", r.collection), zap.Error(err))
		return nil
	}
	span.SetAttributes(attribute.Int("hit_count", len(hits)))

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, Candidate{
			ID:       hit.ID,
			Text:     hit.Text,
			Title:    hit.Title,
			Kind:     r.kind,
			Score:    float64(hit.Score),
			ChunkSeq: hit.ChunkSequence,
		})
	}
	return candidates
}
