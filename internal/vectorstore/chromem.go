package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("github.com/hollowaylabs/answerd/internal/vectorstore/chromem")

const (
	metaTitle         = "title"
	metaChunkSequence = "chunk_sequence"
	metaSequence      = "seq"
)

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the on-disk database directory.
	Path string
	// Compress gzips persisted collections.
	Compress bool
	// Dimension is the embedding width, used for enumeration probes.
	Dimension int
}

// ChromemStore is an embedded, file-backed Store. It requires no
// external service and persists across restarts.
type ChromemStore struct {
	db        *chromem.DB
	dimension int
	logger    *zap.Logger

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

var _ Store = (*ChromemStore)(nil)

// NewChromemStore opens or creates the database at config.Path.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}

	return &ChromemStore{
		db:          db,
		dimension:   config.Dimension,
		logger:      logger,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// expandPath resolves a leading ~ to the user's home directory.
func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// collection returns the named collection, creating it on first use.
func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	// Embeddings are always supplied by the caller, so the collection's
	// own embedding func must never run.
	col, err := s.db.GetOrCreateCollection(name, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("documents must carry precomputed embeddings")
	})
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

// Insert implements Store.
func (s *ChromemStore) Insert(ctx context.Context, collection string, docs []Document) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("document_count", len(docs)),
	)

	if len(docs) == 0 {
		return ErrEmptyBatch
	}
	col, err := s.collection(collection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	out := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document with empty id in collection %q", collection)
		}
		out = append(out, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Text,
			Embedding: doc.Embedding,
			Metadata: map[string]string{
				metaTitle:         doc.Title,
				metaChunkSequence: strconv.Itoa(doc.ChunkSequence),
				metaSequence:      strconv.FormatInt(doc.Sequence, 10),
			},
		})
	}
	if err := col.AddDocuments(ctx, out, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("add documents to %q: %w", collection, err)
	}
	return nil
}

// SearchVectors implements Store.
func (s *ChromemStore) SearchVectors(ctx context.Context, collection string, vector []float32, limit int) ([]SearchHit, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.SearchVectors")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("limit", limit),
	)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	col, err := s.collection(collection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// chromem rejects queries asking for more results than documents.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := col.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query collection %q: %w", collection, err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, SearchHit{
			Document: documentFromResult(res),
			Score:    res.Similarity,
		})
	}
	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// Delete implements Store.
func (s *ChromemStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("id_count", len(ids)),
	)

	col, err := s.collection(collection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete from %q: %w", collection, err)
	}
	return nil
}

// Count implements Store.
func (s *ChromemStore) Count(ctx context.Context, collection string) (int, error) {
	col, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// ListRefs implements Store. chromem has no listing API, so it queries
// every document with a fixed probe vector and reads refs from
// metadata.
func (s *ChromemStore) ListRefs(ctx context.Context, collection string) ([]StoredRef, error) {
	col, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	ctx, span := chromemTracer.Start(ctx, "ChromemStore.ListRefs")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("count", count),
	)

	probe := make([]float32, s.dimension)
	probe[0] = 1

	results, err := col.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("enumerate collection %q: %w", collection, err)
	}

	refs := make([]StoredRef, 0, len(results))
	for _, res := range results {
		refs = append(refs, StoredRef{
			ID:       res.ID,
			Sequence: parseSequence(res.Metadata[metaSequence]),
		})
	}
	return refs, nil
}

// Close implements Store. The persistent DB flushes on write, so there
// is nothing to release.
func (s *ChromemStore) Close() error {
	return nil
}

func documentFromResult(res chromem.Result) Document {
	chunkSeq, _ := strconv.Atoi(res.Metadata[metaChunkSequence])
	return Document{
		ID:            res.ID,
		Text:          res.Content,
		Title:         res.Metadata[metaTitle],
		ChunkSequence: chunkSeq,
		Sequence:      parseSequence(res.Metadata[metaSequence]),
		Embedding:     res.Embedding,
	}
}

func parseSequence(raw string) int64 {
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return seq
}
