package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/embeddings"
	"github.com/hollowaylabs/answerd/internal/vectorstore"
)

// NotesStore persists synthesized notes and keeps the notes collection
// under a fixed size by evicting the oldest entries.
type NotesStore struct {
	store      vectorstore.Store
	embedder   embeddings.Provider
	collection string
	maxNotes   int
	logger     *zap.Logger

	// mu serializes save cycles so concurrent requests cannot allocate
	// the same note ids or race the eviction pass.
	mu sync.Mutex
}

// NewNotesStore creates a notes store manager. The logger may be nil.
func NewNotesStore(store vectorstore.Store, embedder embeddings.Provider, collection string, maxNotes int, logger *zap.Logger) *NotesStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotesStore{
		store:      store,
		embedder:   embedder,
		collection: collection,
		maxNotes:   maxNotes,
		logger:     logger,
	}
}

// Save embeds and inserts the notes, preserving each note's origin
// title, then evicts the oldest entries that exceed the cap.
func (s *NotesStore) Save(ctx context.Context, notes []Candidate) error {
	if len(notes) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "NotesStore.Save")
	defer span.End()
	span.SetAttributes(attribute.Int("note_count", len(notes)))

	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := s.store.ListRefs(ctx, s.collection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("list notes: %w", err)
	}

	// Ids derive from the highest of count and max sequence so an id
	// freed by eviction is never reissued while older notes remain.
	var maxSeq int64
	for _, ref := range refs {
		if ref.Sequence > maxSeq {
			maxSeq = ref.Sequence
		}
	}
	nextID := int64(len(refs))
	if maxSeq+1 > nextID {
		nextID = maxSeq + 1
	}

	texts := make([]string, len(notes))
	for i, note := range notes {
		texts[i] = note.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("embed notes: %w", err)
	}

	docs := make([]vectorstore.Document, len(notes))
	for i, note := range notes {
		title := note.Title
		if title == "" {
			title = unknownOrigin
		}
		docs[i] = vectorstore.Document{
			ID:        fmt.Sprintf("note-%d", nextID+int64(i)),
			Text:      note.Text,
			Title:     title,
			Sequence:  maxSeq + 1 + int64(i),
			Embedding: vectors[i],
		}
	}
	if err := s.store.Insert(ctx, s.collection, docs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert notes: %w", err)
	}

	return s.evict(ctx, len(refs)+len(notes))
}

// evict removes exactly the overflow beyond maxNotes, oldest first.
func (s *NotesStore) evict(ctx context.Context, total int) error {
	overflow := total - s.maxNotes
	if overflow <= 0 {
		return nil
	}

	refs, err := s.store.ListRefs(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("list notes for eviction: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Sequence < refs[j].Sequence
	})
	if overflow > len(refs) {
		overflow = len(refs)
	}

	ids := make([]string, overflow)
	for i := 0; i < overflow; i++ {
		ids[i] = refs[i].ID
	}
	if err := s.store.Delete(ctx, s.collection, ids); err != nil {
		return fmt.Errorf("evict notes: %w", err)
	}
	s.logger.Info("evicted oldest notes",
		zap.Int("evicted", overflow),
		zap.Int("cap", s.maxNotes))
	return nil
}
