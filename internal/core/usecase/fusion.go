package usecase

import (
	"sort"
	"strconv"

	"github.com/ametelin/docqa/internal/core/domain"
)

type fusedCandidate struct {
	chunk domain.Chunk
	score float64
}

// fuseWeightedRRF merges a vector ranking and a keyword ranking by weighted
// reciprocal rank: each list contributes weight * 1/(rank+1) per chunk, with
// weight alpha for the vector list and (1-alpha) for the keyword list. Chunks
// are keyed by their source metadata (positional fallback when absent); the
// first-seen chunk wins for a duplicated key. The fused ranking is sorted by
// total score descending, stable over accumulation order, and is not truncated
// here: trimming happens downstream at reranking or context assembly.
func fuseWeightedRRF(vector, keyword []domain.Chunk, alpha float64) []domain.Chunk {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	acc := make(map[string]*fusedCandidate, len(vector)+len(keyword))
	order := make([]string, 0, len(vector)+len(keyword))

	addList := func(chunks []domain.Chunk, weight float64, fallbackPrefix string) {
		for rank, chunk := range chunks {
			key := chunk.Source()
			if key == "" {
				key = fallbackPrefix + strconv.Itoa(rank)
			}
			candidate, ok := acc[key]
			if !ok {
				candidate = &fusedCandidate{chunk: chunk}
				acc[key] = candidate
				order = append(order, key)
			}
			candidate.score += weight / float64(rank+1)
		}
	}

	addList(vector, alpha, "vec-")
	addList(keyword, 1-alpha, "kw-")

	sort.SliceStable(order, func(i, j int) bool {
		return acc[order[i]].score > acc[order[j]].score
	})

	out := make([]domain.Chunk, 0, len(order))
	for _, key := range order {
		out = append(out, acc[key].chunk)
	}
	return out
}
