package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	sorted := []Candidate{
		{Text: "a", Score: 0.9},
		{Text: "b", Score: 0.7},
		{Text: "c", Score: 0.6},
		{Text: "d", Score: 0.2},
	}

	t.Run("threshold and cap", func(t *testing.T) {
		kept := Select(sorted, 0.5, 2)
		require.Len(t, kept, 2)
		assert.Equal(t, "a", kept[0].Text)
		assert.Equal(t, "b", kept[1].Text)
	})

	t.Run("all pass under cap", func(t *testing.T) {
		kept := Select(sorted, 0.5, 5)
		assert.Len(t, kept, 3)
	})

	t.Run("boundary score is kept", func(t *testing.T) {
		kept := Select([]Candidate{{Text: "x", Score: 0.5}}, 0.5, 3)
		assert.Len(t, kept, 1)
	})

	t.Run("fallback to single best", func(t *testing.T) {
		kept := Select(sorted, 0.95, 3)
		require.Len(t, kept, 1)
		assert.Equal(t, "a", kept[0].Text)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Select(nil, 0.5, 3))
	})
}
