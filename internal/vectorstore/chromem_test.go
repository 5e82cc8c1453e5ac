package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{Path: t.TempDir(), Dimension: 3}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDocs() []Document {
	return []Document{
		{ID: "a", Text: "alpha text", Title: "Doc A", ChunkSequence: 0, Sequence: 1, Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "beta text", Title: "Doc B", ChunkSequence: 0, Sequence: 2, Embedding: []float32{0, 1, 0}},
		{ID: "c", Text: "gamma text", Title: "Doc A", ChunkSequence: 1, Sequence: 3, Embedding: []float32{0.9, 0.1, 0}},
	}
}

func TestChromemInsertAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "docs", testDocs()))

	hits, err := store.SearchVectors(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "alpha text", hits[0].Text)
	assert.Equal(t, "Doc A", hits[0].Title)
	assert.Equal(t, int64(1), hits[0].Sequence)
	assert.Equal(t, "c", hits[1].ID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestChromemOperationsEmitSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(sdktrace.NewTracerProvider())

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "docs", testDocs()))
	_, err := store.SearchVectors(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	_, err = store.ListRefs(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "docs", []string{"a"}))

	names := make(map[string]bool)
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}
	for _, want := range []string{
		"ChromemStore.Insert",
		"ChromemStore.SearchVectors",
		"ChromemStore.ListRefs",
		"ChromemStore.Delete",
	} {
		assert.True(t, names[want], "missing span %s", want)
	}
}

func TestChromemSearchEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	hits, err := store.SearchVectors(context.Background(), "docs", []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemSearchClampsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "docs", testDocs()[:1]))

	hits, err := store.SearchVectors(ctx, "docs", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestChromemCountAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "docs", testDocs()))

	count, err := store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.Delete(ctx, "docs", []string{"a", "b"}))

	count, err = store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting nothing is a no-op.
	require.NoError(t, store.Delete(ctx, "docs", nil))
}

func TestChromemListRefs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "docs", testDocs()))

	refs, err := store.ListRefs(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, refs, 3)

	bySeq := make(map[string]int64, len(refs))
	for _, ref := range refs {
		bySeq[ref.ID] = ref.Sequence
	}
	assert.Equal(t, int64(1), bySeq["a"])
	assert.Equal(t, int64(2), bySeq["b"])
	assert.Equal(t, int64(3), bySeq["c"])
}

func TestChromemListRefsEmpty(t *testing.T) {
	store := newTestStore(t)

	refs, err := store.ListRefs(context.Background(), "docs")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestChromemInsertValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, "docs", nil), ErrEmptyBatch)
	assert.Error(t, store.Insert(ctx, "bad name!", testDocs()))
	assert.Error(t, store.Insert(ctx, "docs", []Document{{Text: "no id", Embedding: []float32{1, 0, 0}}}))
}

func TestExpandPath(t *testing.T) {
	got, err := expandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = expandPath("~/data")
	require.NoError(t, err)
	assert.NotContains(t, got, "~")
	assert.Contains(t, got, "data")
}

func TestChromemPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewChromemStore(ChromemConfig{Path: dir, Dimension: 3}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, "docs", testDocs()))
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(ChromemConfig{Path: dir, Dimension: 3}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
