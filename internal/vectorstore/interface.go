// Package vectorstore abstracts vector database operations behind a
// provider-agnostic interface with embedded (chromem-go) and remote
// (Qdrant) implementations.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidConfig indicates the store configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid vectorstore config")

	// ErrInvalidCollection indicates a malformed collection name.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrEmptyBatch indicates an insert with no documents.
	ErrEmptyBatch = errors.New("empty document batch")

	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// Document is a stored text chunk with its embedding and attribution
// metadata.
type Document struct {
	// ID uniquely identifies the document within its collection.
	ID string
	// Text is the chunk content.
	Text string
	// Title names the source the chunk came from.
	Title string
	// ChunkSequence is the chunk's position within its source.
	ChunkSequence int
	// Sequence is a store-wide monotonic insertion counter. Eviction
	// orders by it because neither backend guarantees insertion-order
	// enumeration.
	Sequence int64
	// Embedding is the precomputed vector for Text.
	Embedding []float32
}

// SearchHit is a document returned from a similarity search.
type SearchHit struct {
	Document
	// Score is the cosine similarity against the query vector.
	Score float32
}

// StoredRef identifies a stored document without its content.
type StoredRef struct {
	ID       string
	Sequence int64
}

// Store is the set of operations the pipeline needs from a vector
// database.
type Store interface {
	// Insert writes documents with their precomputed embeddings.
	Insert(ctx context.Context, collection string, docs []Document) error

	// SearchVectors returns up to limit documents ranked by similarity
	// to the query vector.
	SearchVectors(ctx context.Context, collection string, vector []float32, limit int) ([]SearchHit, error)

	// Delete removes documents by ID. Missing IDs are not an error.
	Delete(ctx context.Context, collection string, ids []string) error

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// ListRefs enumerates all stored documents as lightweight refs.
	ListRefs(ctx context.Context, collection string) ([]StoredRef, error)

	// Close releases any resources held by the store.
	Close() error
}

var collectionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateCollectionName rejects names that are empty, too long, or
// contain characters outside [a-zA-Z0-9_-].
func ValidateCollectionName(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}
