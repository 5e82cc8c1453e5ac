package pipeline

// Select keeps candidates scoring at or above threshold, capped at
// topK. When nothing passes but candidates exist, it falls back to the
// single best so downstream stages never starve on a strict threshold.
// The input is assumed sorted by descending score.
func Select(candidates []Candidate, threshold float64, topK int) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	kept := make([]Candidate, 0, topK)
	for _, c := range candidates {
		if c.Score >= threshold {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return candidates[:1]
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}
