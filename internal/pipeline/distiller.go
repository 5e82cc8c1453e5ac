package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/completion"
)

// distilledDelimiter separates the model's echo of the prompt from the
// facts it produced.
const distilledDelimiter = "Distilled Facts:"

// Distiller condenses the fused working set into a compact list of
// factual statements via one completion call.
type Distiller struct {
	llm       completion.Client
	maxTokens int
	logger    *zap.Logger
}

// NewDistiller creates a distiller. The logger may be nil.
func NewDistiller(llm completion.Client, maxTokens int, logger *zap.Logger) *Distiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distiller{llm: llm, maxTokens: maxTokens, logger: logger}
}

// Distill returns the distilled facts joined by "; ", or an empty
// string when the completion fails.
func (d *Distiller) Distill(ctx context.Context, fused []Candidate) string {
	ctx, span := tracer.Start(ctx, "Distiller.Distill")
	defer span.End()
	span.SetAttributes(attribute.Int("context_count", len(fused)))

	texts := make([]string, len(fused))
	for i, c := range fused {
		texts[i] = c.Text
	}
	prompt := fmt.Sprintf(
		"Rewrite the following retrieved content into clear, factual statements. Output ONE fact per line. Do NOT invent facts. %s Distilled Facts:",
		strings.Join(texts, "\n"))

	raw, err := d.llm.Complete(ctx, prompt, d.maxTokens, 0.5)
	if err != nil {
		span.RecordError(err)
		d.logger.Warn("distillation failed", zap.Error(err))
		return ""
	}
	return parseDistilled(raw)
}

// parseDistilled keeps everything after the last delimiter occurrence,
// so models that echo the prompt lose the echoed copy. Lines are
// stripped of bullet markers, deduplicated preserving first occurrence,
// and joined with "; ".
func parseDistilled(raw string) string {
	clean := raw
	if idx := strings.LastIndex(raw, distilledDelimiter); idx >= 0 {
		clean = raw[idx+len(distilledDelimiter):]
	}
	clean = strings.TrimSpace(clean)

	return strings.Join(parseLines(clean), "; ")
}

// parseLines splits text into non-empty lines with bullet markers and
// surrounding whitespace removed, deduplicated in order.
func parseLines(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-• "))
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}
