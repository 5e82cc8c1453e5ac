package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifierKeepsGroundedDropsFabricated(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3, vecs: map[string][]float32{
		"Go was created at Google.": {1, 0, 0},
		"Go is grounded here.":      {0.9, 0.1, 0},
		"The moon is made of cheese.": {0, 0, 1},
	}}
	v := NewVerifier(embedder, 0.5, nil)

	kept := v.Filter(context.Background(),
		[]string{"Go is grounded here.", "The moon is made of cheese."},
		[]string{"Go was created at Google."})

	require.Len(t, kept, 1)
	assert.Equal(t, "Go is grounded here.", kept[0])
}

func TestVerifierDeduplicatesSentences(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3, vecs: map[string][]float32{
		"ctx":  {1, 0, 0},
		"same": {1, 0, 0},
	}}
	v := NewVerifier(embedder, 0.5, nil)

	kept := v.Filter(context.Background(), []string{"same", "same"}, []string{"ctx"})
	assert.Equal(t, []string{"same"}, kept)
}

func TestVerifierEmptyInputs(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	v := NewVerifier(embedder, 0.5, nil)

	assert.Empty(t, v.Filter(context.Background(), nil, []string{"ctx"}))
	assert.Empty(t, v.Filter(context.Background(), []string{"s"}, nil))
	assert.Zero(t, embedder.calls)
}

func TestVerifierZeroVectorsNeverPass(t *testing.T) {
	// Degraded embeddings yield zero vectors; cosine is 0, under any
	// positive threshold.
	embedder := &fakeEmbedder{dim: 3}
	v := NewVerifier(embedder, 0.5, nil)

	kept := v.Filter(context.Background(), []string{"anything"}, []string{"ctx"})
	assert.Empty(t, kept)
}
