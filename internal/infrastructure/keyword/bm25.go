// Package keyword ranks in-memory chunks with BM25. The index is rebuilt from
// the corpus snapshot on demand and is safe for concurrent reads once built.
package keyword

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type Index struct {
	chunks    []domain.Chunk
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	docFreq   map[string]int
}

// NewIndex builds the ranking structure over the given chunks. The chunk
// slice is captured by reference and must not be mutated afterwards.
func NewIndex(chunks []domain.Chunk) ports.KeywordIndex {
	idx := &Index{
		chunks:    chunks,
		termFreqs: make([]map[string]int, len(chunks)),
		docLens:   make([]int, len(chunks)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, chunk := range chunks {
		tokens := tokenize(chunk.Content)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for term := range tf {
			idx.docFreq[term]++
		}
	}
	if len(chunks) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(chunks))
	}
	return idx
}

// Search returns the top k chunks by BM25 score, best first. Chunks that
// share no term with the query are omitted, so the result may be shorter
// than k.
func (idx *Index) Search(query string, k int) []domain.Chunk {
	terms := tokenize(query)
	if len(terms) == 0 || len(idx.chunks) == 0 || k <= 0 {
		return nil
	}

	type scored struct {
		position int
		score    float64
	}
	candidates := make([]scored, 0, len(idx.chunks))
	for i := range idx.chunks {
		score := idx.scoreDocument(i, terms)
		if score > 0 {
			candidates = append(candidates, scored{position: i, score: score})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]domain.Chunk, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, idx.chunks[c.position].WithScore(c.score))
	}
	return out
}

func (idx *Index) scoreDocument(position int, terms []string) float64 {
	tf := idx.termFreqs[position]
	docLen := float64(idx.docLens[position])
	n := float64(len(idx.chunks))

	var score float64
	for _, term := range terms {
		freq := float64(tf[term])
		if freq == 0 {
			continue
		}
		df := float64(idx.docFreq[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := freq + bm25K1*(1-bm25B+bm25B*docLen/idx.avgDocLen)
		score += idf * freq * (bm25K1 + 1) / norm
	}
	return score
}

// tokenize lower-cases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
