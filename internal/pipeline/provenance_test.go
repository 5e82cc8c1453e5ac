package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProvenance(t *testing.T) {
	fused := []Candidate{
		{ID: "n1", Text: "synth", Title: "A", Kind: KindNote, Score: 1.0, Synthetic: true},
		{ID: "d1", Text: "one", Title: "A", Kind: KindDocument, Score: 0.87654, ChunkSeq: 2},
		{ID: "d2", Text: "two", Title: "B", Kind: KindDocument, Score: 0.7},
		{ID: "d3", Text: "three", Title: "A", Kind: KindDocument, Score: 0.6},
		{ID: "d4", Text: "four", Title: "", Kind: KindDocument, Score: 0.5},
		{ID: "n2", Text: "five", Title: "unknown", Kind: KindNote, Score: 0.5},
	}

	got := BuildProvenance(fused)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "d1", got[0].SourceID)
	assert.Equal(t, "document", got[0].Kind)
	assert.Equal(t, 2, got[0].ChunkSeq)
	assert.InDelta(t, 0.8765, got[0].Score, 1e-9)

	assert.Equal(t, "B", got[1].Title)
}

func TestBuildProvenanceEmpty(t *testing.T) {
	assert.Empty(t, BuildProvenance(nil))
	assert.Empty(t, BuildProvenance([]Candidate{{Title: "A", Synthetic: true}}))
}
