package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/completion"
	"github.com/hollowaylabs/answerd/internal/embeddings"
	"github.com/hollowaylabs/answerd/internal/vectorstore"
)

const instrumentationName = "github.com/hollowaylabs/answerd/internal/pipeline"

var tracer = otel.Tracer(instrumentationName)

// SentinelAnswer is returned whenever no grounded answer exists.
const SentinelAnswer = "I don't know."

// Config holds the pipeline tuning parameters.
type Config struct {
	SimilarityThreshold float64
	TopK                int
	FinalK              int
	MaxNewTokens        int
	VerifyThreshold     float64
	MaxNotes            int
	DocumentsCollection string
	NotesCollection     string
}

// Answer is the full result of one pipeline run.
type Answer struct {
	// Extractive is the top working-set texts joined verbatim.
	Extractive string `json:"extractive"`
	// Natural is the generated answer after grounding verification.
	Natural string `json:"natural"`
	// Distilled is the condensed fact list.
	Distilled string `json:"distilled"`
	// Provenance lists the named origins behind the answer.
	Provenance []Provenance `json:"provenance"`
	// Prompt is the strict-answer prompt, kept for inspection.
	Prompt string `json:"prompt"`
}

// Engine orchestrates the pipeline stages. Answer never returns an
// error; every collaborator failure degrades to the sentinel.
type Engine struct {
	config     Config
	docs       *Retriever
	notes      *Retriever
	reranker   *Reranker
	distiller  *Distiller
	synth      *NotesSynthesizer
	verifier   *Verifier
	notesStore *NotesStore
	llm        completion.Client
	logger     *zap.Logger
	metrics    *engineMetrics
}

// engineMetrics holds the pipeline's OpenTelemetry instruments.
type engineMetrics struct {
	answersTotal metric.Int64Counter
	answerDur    metric.Float64Histogram
}

func newEngineMetrics(logger *zap.Logger) *engineMetrics {
	meter := otel.Meter(instrumentationName)
	m := &engineMetrics{}
	var err error

	m.answersTotal, err = meter.Int64Counter(
		"answerd.pipeline.answers_total",
		metric.WithDescription("Answered questions, labeled by outcome (grounded or refused)."),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		logger.Warn("failed to create answers counter", zap.Error(err))
	}

	m.answerDur, err = meter.Float64Histogram(
		"answerd.pipeline.answer_duration_seconds",
		metric.WithDescription("End-to-end pipeline duration per question in seconds, labeled by outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}
	return m
}

func (m *engineMetrics) record(ctx context.Context, grounded bool, elapsed time.Duration) {
	outcome := "refused"
	if grounded {
		outcome = "grounded"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if m.answersTotal != nil {
		m.answersTotal.Add(ctx, 1, attrs)
	}
	if m.answerDur != nil {
		m.answerDur.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// NewEngine wires the stages over shared collaborators. The logger may
// be nil.
func NewEngine(config Config, store vectorstore.Store, embedder embeddings.Provider, llm completion.Client, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config:     config,
		docs:       NewRetriever(store, embedder, config.DocumentsCollection, KindDocument, logger),
		notes:      NewRetriever(store, embedder, config.NotesCollection, KindNote, logger),
		reranker:   NewReranker(embedder, logger),
		distiller:  NewDistiller(llm, config.MaxNewTokens, logger),
		synth:      NewNotesSynthesizer(llm, config.MaxNewTokens, logger),
		verifier:   NewVerifier(embedder, config.VerifyThreshold, logger),
		notesStore: NewNotesStore(store, embedder, config.NotesCollection, config.MaxNotes, logger),
		llm:        llm,
		logger:     logger,
		metrics:    newEngineMetrics(logger),
	}
}

// Answer runs the full pipeline for one question.
func (e *Engine) Answer(ctx context.Context, query string) Answer {
	ctx, span := tracer.Start(ctx, "Engine.Answer")
	defer span.End()
	start := time.Now()

	fetch := 2 * e.config.TopK

	docsCands := e.docs.Retrieve(ctx, query, fetch)
	notesCands := e.notes.Retrieve(ctx, query, fetch)

	docsKept := Select(e.reranker.Rerank(ctx, query, docsCands), e.config.SimilarityThreshold, e.config.TopK)
	notesKept := Select(e.reranker.Rerank(ctx, query, notesCands), e.config.SimilarityThreshold, e.config.TopK)

	fused := Fuse(append(docsKept, notesKept...), e.config.FinalK)
	span.SetAttributes(
		attribute.Int("retrieved_documents", len(docsCands)),
		attribute.Int("retrieved_notes", len(notesCands)),
		attribute.Int("fused_count", len(fused)),
	)
	if len(fused) == 0 {
		span.SetAttributes(attribute.Bool("grounded", false))
		e.metrics.record(ctx, false, time.Since(start))
		return Answer{
			Extractive: SentinelAnswer,
			Natural:    SentinelAnswer,
			Provenance: []Provenance{},
		}
	}

	// Fold freshly synthesized notes into the working set before
	// answering, so connections across retrieved items can surface.
	// The round-robin origin title assigned here travels with each
	// note into persistence.
	noteCands := AsCandidates(e.synth.Synthesize(ctx, query, "", "", fused), fused)
	fused = Fuse(append(fused, noteCands...), e.config.FinalK)

	extractive := joinTexts(fused, 2)
	distilled := e.distiller.Distill(ctx, fused)
	prompt := buildStrictPrompt(fused, query)

	natural := SentinelAnswer
	if distilled != "" {
		natural = e.generateVerified(ctx, prompt, fused)
	}

	// Notes capture retrieved knowledge, so they persist whenever
	// synthesis produced any, independent of how the answer came out.
	// Best-effort: the response is already computed.
	if err := e.notesStore.Save(ctx, noteCands); err != nil {
		e.logger.Warn("note persistence failed", zap.Error(err))
	}

	span.SetAttributes(
		attribute.Int("notes_synthesized", len(noteCands)),
		attribute.Bool("grounded", natural != SentinelAnswer),
	)
	e.metrics.record(ctx, natural != SentinelAnswer, time.Since(start))

	return Answer{
		Extractive: extractive,
		Natural:    natural,
		Distilled:  distilled,
		Provenance: BuildProvenance(fused),
		Prompt:     prompt,
	}
}

// generateVerified produces the strict answer and keeps only grounded
// sentences. Anything going wrong collapses to the sentinel.
func (e *Engine) generateVerified(ctx context.Context, prompt string, fused []Candidate) string {
	raw, err := e.llm.Complete(ctx, prompt, e.config.MaxNewTokens, 0.0)
	if err != nil {
		e.logger.Warn("answer generation failed", zap.Error(err))
		return SentinelAnswer
	}

	texts := make([]string, len(fused))
	for i, c := range fused {
		texts[i] = c.Text
	}
	kept := e.verifier.Filter(ctx, SplitSentences(raw), texts)
	joined := strings.TrimSpace(strings.Join(kept, " "))
	if joined == "" {
		return SentinelAnswer
	}
	return joined
}

func joinTexts(fused []Candidate, n int) string {
	if len(fused) < n {
		n = len(fused)
	}
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		texts[i] = fused[i].Text
	}
	return strings.Join(texts, " ")
}

func buildStrictPrompt(fused []Candidate, query string) string {
	lines := make([]string, len(fused))
	for i, c := range fused {
		lines[i] = fmt.Sprintf("%s: %s", c.Title, c.Text)
	}
	return fmt.Sprintf(`Answer the question strictly using the facts below.
- Only use facts listed here.
- Do NOT invent, infer, or explain.
- If none of the facts are relevant, output exactly "I don't know."
Facts: %s
Question: %s
Answer in 1-2 plain sentences strictly from the facts:`, strings.Join(lines, "\n"), query)
}
