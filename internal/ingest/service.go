package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/embeddings"
	"github.com/hollowaylabs/answerd/internal/vectorstore"
)

// ErrEmptyDocument indicates a document with no usable text.
var ErrEmptyDocument = errors.New("document has no text")

// Config holds the ingestion settings.
type Config struct {
	// Collection receives the chunks.
	Collection string
	// ChunkSize bounds chunk length in characters.
	ChunkSize int
}

// Service chunks, embeds, and stores documents.
type Service struct {
	store    vectorstore.Store
	embedder embeddings.Provider
	config   Config
	logger   *zap.Logger

	// mu serializes ingests so concurrent documents get disjoint
	// sequence numbers.
	mu sync.Mutex
}

// NewService creates an ingestion service. The logger may be nil.
func NewService(store vectorstore.Store, embedder embeddings.Provider, config Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embedder: embedder, config: config, logger: logger}
}

// IngestDocument stores the document under the given title and returns
// the number of chunks written. Chunk ids are content hashes, so
// re-ingesting the same text is effectively idempotent.
func (s *Service) IngestDocument(ctx context.Context, title, text string) (int, error) {
	chunks := Chunk(text, s.config.ChunkSize)
	if len(chunks) == 0 {
		return 0, ErrEmptyDocument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := s.store.ListRefs(ctx, s.config.Collection)
	if err != nil {
		return 0, fmt.Errorf("list collection: %w", err)
	}
	var maxSeq int64
	for _, ref := range refs {
		if ref.Sequence > maxSeq {
			maxSeq = ref.Sequence
		}
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			ID:            chunkID(title, chunk),
			Text:          chunk,
			Title:         title,
			ChunkSequence: i,
			Sequence:      maxSeq + 1 + int64(i),
			Embedding:     vectors[i],
		}
	}
	if err := s.store.Insert(ctx, s.config.Collection, docs); err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}

	s.logger.Info("document ingested",
		zap.String("title", title),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// chunkID derives a stable id from the title and chunk content.
func chunkID(title, chunk string) string {
	sum := md5.Sum([]byte(title + "\x00" + strings.TrimSpace(chunk)))
	return hex.EncodeToString(sum[:])
}
