// Package ingest loads source documents into the vector store as
// bounded, embedded chunks.
package ingest

import (
	"strings"

	"github.com/hollowaylabs/answerd/internal/pipeline"
)

// Chunk splits text into pieces of at most size characters, breaking
// on paragraph boundaries first and sentence boundaries inside
// oversized paragraphs. A sentence longer than size becomes a chunk of
// its own rather than being cut mid-word.
func Chunk(text string, size int) []string {
	if size <= 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	appendPiece := func(piece, sep string) {
		if current.Len() > 0 && current.Len()+len(sep)+len(piece) > size {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= size {
			appendPiece(para, "\n\n")
			continue
		}
		for _, sentence := range pipeline.SplitSentences(para) {
			appendPiece(sentence, " ")
		}
	}
	flush()
	return chunks
}
