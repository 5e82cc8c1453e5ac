// Package pipeline implements the retrieval, fusion, and verification
// stages that turn a question into a grounded answer. Every stage
// degrades on collaborator failure instead of propagating errors, so
// Answer always produces a result.
package pipeline

import "math"

// Kind names the collection a candidate came from.
type Kind string

const (
	KindDocument Kind = "document"
	KindNote     Kind = "note"
)

// unknownOrigin is the fallback title for items whose source cannot be
// named. Provenance never reports it.
const unknownOrigin = "unknown"

// Candidate is a context item flowing through the pipeline stages.
type Candidate struct {
	// ID is the stored document id, empty for synthetic items.
	ID string
	// Text is the candidate content.
	Text string
	// Title names the candidate's source.
	Title string
	// Kind is the originating collection.
	Kind Kind
	// Score is the current relevance score; stages overwrite it.
	Score float64
	// Synthetic marks items generated during the request rather than
	// retrieved from storage.
	Synthetic bool
	// ChunkSeq is the chunk's position within its source.
	ChunkSeq int
}

// cosine returns the cosine similarity of two vectors, or 0 when
// either has zero norm or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
