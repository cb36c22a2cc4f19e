package content

import (
	"sort"

	"github.com/MoodTunesAI/moodtunes-mvp/pkg/vecmath"
)

// neighbor pairs a catalog row with its cosine distance from a query vector.
type neighbor struct {
	Row      int
	Distance float64
}

// bruteIndex performs exhaustive nearest-neighbor search under cosine
// distance. Exhaustive scan is exact and plenty fast for catalog sizes in the
// hundreds to low thousands; rows are immutable after build, so concurrent
// searches need no locking.
type bruteIndex struct {
	rows [][]float32
}

func newBruteIndex(rows [][]float32) *bruteIndex {
	return &bruteIndex{rows: rows}
}

// Neighbors returns the k nearest rows to query, ascending by distance.
// Exact distance ties resolve to the lower catalog row, which preserves
// catalog insertion order.
func (ix *bruteIndex) Neighbors(query []float32, k int) []neighbor {
	if k <= 0 || len(ix.rows) == 0 {
		return nil
	}
	out := make([]neighbor, len(ix.rows))
	for i, row := range ix.rows {
		out[i] = neighbor{Row: i, Distance: vecmath.CosineDistance(query, row)}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Distance < out[b].Distance
	})
	if k > len(out) {
		k = len(out)
	}
	return out[:k]
}

// Len returns the number of indexed rows.
func (ix *bruteIndex) Len() int { return len(ix.rows) }
