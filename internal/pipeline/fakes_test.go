package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/hollowaylabs/answerd/internal/vectorstore"
)

// fakeEmbedder returns canned vectors per text and a zero vector for
// anything unknown.
type fakeEmbedder struct {
	dim   int
	vecs  map[string][]float32
	calls int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if vec, ok := f.vecs[text]; ok {
		return vec, nil
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// fakeLLM dispatches on the prompt text.
type fakeLLM struct {
	fn    func(prompt string) (string, error)
	calls int
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ int, _ float64) (string, error) {
	f.calls++
	return f.fn(prompt)
}

// memStore is an in-memory vectorstore.Store for exercising the
// pipeline without a real backend.
type memStore struct {
	mu          sync.Mutex
	collections map[string][]vectorstore.Document
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string][]vectorstore.Document)}
}

func (m *memStore) Insert(_ context.Context, collection string, docs []vectorstore.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], docs...)
	return nil
}

func (m *memStore) SearchVectors(_ context.Context, collection string, vector []float32, limit int) ([]vectorstore.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	hits := make([]vectorstore.SearchHit, 0, len(docs))
	for _, doc := range docs {
		hits = append(hits, vectorstore.SearchHit{
			Document: doc,
			Score:    float32(cosine(doc.Embedding, vector)),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *memStore) Delete(_ context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.collections[collection][:0]
	for _, doc := range m.collections[collection] {
		if !drop[doc.ID] {
			kept = append(kept, doc)
		}
	}
	m.collections[collection] = kept
	return nil
}

func (m *memStore) Count(_ context.Context, collection string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection]), nil
}

func (m *memStore) ListRefs(_ context.Context, collection string) ([]vectorstore.StoredRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := make([]vectorstore.StoredRef, 0, len(m.collections[collection]))
	for _, doc := range m.collections[collection] {
		refs = append(refs, vectorstore.StoredRef{ID: doc.ID, Sequence: doc.Sequence})
	}
	return refs, nil
}

func (m *memStore) Close() error { return nil }
