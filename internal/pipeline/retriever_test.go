package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowaylabs/answerd/internal/vectorstore"
)

type failingStore struct{ memStore }

func (f *failingStore) SearchVectors(context.Context, string, []float32, int) ([]vectorstore.SearchHit, error) {
	return nil, errors.New("backend down")
}

func TestRetrieveMapsHits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Insert(ctx, "documents", []vectorstore.Document{
		{ID: "d1", Text: "alpha", Title: "A", ChunkSequence: 3, Sequence: 1, Embedding: []float32{1, 0}},
		{ID: "d2", Text: "beta", Title: "B", Sequence: 2, Embedding: []float32{0, 1}},
	}))
	embedder := &fakeEmbedder{dim: 2, vecs: map[string][]float32{"q": {1, 0}}}

	r := NewRetriever(store, embedder, "documents", KindDocument, nil)
	got := r.Retrieve(ctx, "q", 5)

	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].ID)
	assert.Equal(t, "alpha", got[0].Text)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, KindDocument, got[0].Kind)
	assert.Equal(t, 3, got[0].ChunkSeq)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
}

func TestRetrieveDegradesToEmptyOnSearchFailure(t *testing.T) {
	r := NewRetriever(&failingStore{}, &fakeEmbedder{dim: 2}, "documents", KindDocument, nil)
	assert.Empty(t, r.Retrieve(context.Background(), "q", 5))
}
