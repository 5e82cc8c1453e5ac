package pipeline

import "math"

// Provenance records one origin that contributed to an answer.
type Provenance struct {
	Kind     string  `json:"kind"`
	SourceID string  `json:"source_id,omitempty"`
	Title    string  `json:"title"`
	ChunkSeq int     `json:"chunk_sequence"`
	Score    float64 `json:"score"`
}

// BuildProvenance returns one record per distinct named origin in
// working-set order. Synthetic items, items without a title, and items
// carrying the unknown-origin sentinel have no attribution and are
// skipped.
func BuildProvenance(fused []Candidate) []Provenance {
	seen := make(map[string]bool)
	out := make([]Provenance, 0, len(fused))
	for _, c := range fused {
		if c.Synthetic || c.Title == "" || c.Title == unknownOrigin || seen[c.Title] {
			continue
		}
		seen[c.Title] = true
		out = append(out, Provenance{
			Kind:     string(c.Kind),
			SourceID: c.ID,
			Title:    c.Title,
			ChunkSeq: c.ChunkSeq,
			Score:    math.Round(c.Score*10000) / 10000,
		})
	}
	return out
}
