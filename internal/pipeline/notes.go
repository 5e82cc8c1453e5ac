package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/completion"
)

const notesPromptTemplate = `You are maintaining a growing notebook of key ideas. Do not answer questions that are not from retrieved content.
From the following:
- Retrieved content
- Distilled facts
- The question and answer
Write 3-6 short, self-contained notes that:
- Rephrase and combine ideas
- Make connections across items
- Capture reusable knowledge (not question-specific wording)
Retrieved: %s
Distilled facts: %s
Q: %s
A: %s
New Notes:`

// NotesSynthesizer asks the model to compress the working set into a
// handful of reusable notes.
type NotesSynthesizer struct {
	llm       completion.Client
	maxTokens int
	logger    *zap.Logger
}

// NewNotesSynthesizer creates a synthesizer. The logger may be nil.
func NewNotesSynthesizer(llm completion.Client, maxTokens int, logger *zap.Logger) *NotesSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotesSynthesizer{llm: llm, maxTokens: maxTokens, logger: logger}
}

// Synthesize returns deduplicated note texts, or nil when the
// completion fails.
func (n *NotesSynthesizer) Synthesize(ctx context.Context, question, answer, distilled string, fused []Candidate) []string {
	ctx, span := tracer.Start(ctx, "NotesSynthesizer.Synthesize")
	defer span.End()

	texts := make([]string, len(fused))
	for i, c := range fused {
		texts[i] = c.Text
	}
	prompt := fmt.Sprintf(notesPromptTemplate, strings.Join(texts, "\n"), distilled, question, answer)

	raw, err := n.llm.Complete(ctx, prompt, n.maxTokens, 0.5)
	if err != nil {
		span.RecordError(err)
		n.logger.Warn("note synthesis failed", zap.Error(err))
		return nil
	}
	notes := parseLines(raw)
	span.SetAttributes(attribute.Int("note_count", len(notes)))
	return notes
}

// AsCandidates wraps note texts as synthetic candidates with full
// score, attributing each to a working-set source round-robin.
func AsCandidates(notes []string, fused []Candidate) []Candidate {
	if len(fused) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(notes))
	for i, note := range notes {
		out = append(out, Candidate{
			Text:      note,
			Title:     fused[i%len(fused)].Title,
			Kind:      KindNote,
			Score:     1.0,
			Synthetic: true,
		})
	}
	return out
}
