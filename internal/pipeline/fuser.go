package pipeline

import (
	"sort"
	"strings"
)

// Fuse merges candidates from multiple stages into a deduplicated,
// source-diverse working set capped at finalK.
//
// Deduplication keys on trimmed text. A candidate from a source not yet
// represented claims its key unconditionally, even over a higher-scored
// holder; once a source is represented, its candidates only fill absent
// keys or displace a holder with a strictly greater score. The result
// is sorted by descending score.
func Fuse(pool []Candidate, finalK int) []Candidate {
	if finalK <= 0 {
		return nil
	}

	best := make(map[string]Candidate)
	order := make([]string, 0, len(pool))
	seenSources := make(map[string]bool)

	for _, c := range pool {
		key := strings.TrimSpace(c.Text)
		source := c.Title
		if !seenSources[source] {
			seenSources[source] = true
			if _, ok := best[key]; !ok {
				order = append(order, key)
			}
			best[key] = c
			continue
		}
		holder, ok := best[key]
		if !ok {
			order = append(order, key)
			best[key] = c
		} else if c.Score > holder.Score {
			best[key] = c
		}
	}

	fused := make([]Candidate, 0, len(order))
	for _, key := range order {
		fused = append(fused, best[key])
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	if len(fused) > finalK {
		fused = fused[:finalK]
	}
	return fused
}
