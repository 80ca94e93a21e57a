package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

type vectorIndexFake struct {
	exists    bool
	existsErr error
	chunks    []domain.Chunk
	searchErr error
	lastK     int
}

func (f *vectorIndexFake) Build(context.Context, []domain.Chunk) error { return nil }
func (f *vectorIndexFake) Exists(context.Context) (bool, error)       { return f.exists, f.existsErr }
func (f *vectorIndexFake) SimilaritySearch(_ context.Context, _ string, k int) ([]domain.Chunk, error) {
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.chunks) > k {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

type keywordIndexFake struct {
	chunks []domain.Chunk
}

// Search matches term by term the way the real index tokenizes queries, not
// by whole-query substring.
func (f *keywordIndexFake) Search(query string, k int) []domain.Chunk {
	terms := strings.Fields(strings.ToLower(query))
	var out []domain.Chunk
	for _, c := range f.chunks {
		content := strings.ToLower(c.Content)
		for _, term := range terms {
			if strings.Contains(content, strings.Trim(term, "?.,!")) {
				out = append(out, c)
				break
			}
		}
		if len(out) == k {
			break
		}
	}
	return out
}

func newTestProvider(vector *vectorIndexFake, corpus []domain.Chunk) *RetrieverProvider {
	factory := func(chunks []domain.Chunk) ports.KeywordIndex {
		return &keywordIndexFake{chunks: chunks}
	}
	provider := NewRetrieverProvider(vector, factory, 0.6, nil)
	provider.SwapCorpus(corpus)
	return provider
}

func TestRetrieverRejectsNonPositiveTopK(t *testing.T) {
	provider := newTestProvider(&vectorIndexFake{}, nil)

	for _, topK := range []int{0, -3} {
		_, _, _, err := provider.Retriever(domain.StrategyVector, topK)
		if !domain.IsKind(err, domain.ErrInvalidParameter) {
			t.Fatalf("top_k=%d: expected invalid parameter error, got %v", topK, err)
		}
	}
}

func TestRetrieverRejectsUnknownStrategy(t *testing.T) {
	provider := newTestProvider(&vectorIndexFake{}, nil)

	_, _, _, err := provider.Retriever(domain.Strategy("semantic"), 4)
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter error, got %v", err)
	}
}

func TestVectorRetrievalErrorIsHard(t *testing.T) {
	vector := &vectorIndexFake{searchErr: errors.New("no index built")}
	provider := newTestProvider(vector, nil)

	ret, _, _, err := provider.Retriever(domain.StrategyVector, 4)
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	_, err = ret.Retrieve(context.Background(), "question")
	if !domain.IsKind(err, domain.ErrRetrievalFailed) {
		t.Fatalf("expected retrieval failed error, got %v", err)
	}
}

func TestKeywordFallsBackToVectorWithoutCorpus(t *testing.T) {
	vector := &vectorIndexFake{chunks: []domain.Chunk{chunkFor("a.md", "hello")}}
	provider := newTestProvider(vector, nil)

	ret, effective, reason, err := provider.Retriever(domain.StrategyKeyword, 4)
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	if effective != domain.StrategyVector {
		t.Fatalf("expected vector fallback strategy, got %s", effective)
	}
	if reason != domain.FallbackNoCorpusDocuments {
		t.Fatalf("expected no_corpus_documents reason, got %q", reason)
	}

	chunks, err := ret.Retrieve(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected vector chunks, got %d", len(chunks))
	}
}

func TestHybridFallsBackToVectorWithoutCorpus(t *testing.T) {
	vector := &vectorIndexFake{}
	provider := newTestProvider(vector, nil)

	_, effective, reason, err := provider.Retriever(domain.StrategyHybrid, 4)
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	if effective != domain.StrategyVector || reason != domain.FallbackNoCorpusDocuments {
		t.Fatalf("expected vector fallback with reason, got %s/%q", effective, reason)
	}
}

func TestHybridFusesVectorAndKeywordRankings(t *testing.T) {
	corpus := []domain.Chunk{
		chunkFor("a.md", "alpha release notes"),
		chunkFor("b.md", "alpha pricing"),
	}
	vector := &vectorIndexFake{chunks: []domain.Chunk{chunkFor("c.md", "alpha summary")}}
	provider := newTestProvider(vector, corpus)

	ret, effective, reason, err := provider.Retriever(domain.StrategyHybrid, 4)
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	if effective != domain.StrategyHybrid || reason != domain.FallbackNone {
		t.Fatalf("expected hybrid without fallback, got %s/%q", effective, reason)
	}

	chunks, err := ret.Retrieve(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected fused chunks from both rankings, got %d", len(chunks))
	}
}

func TestZeroAlphaWeightsKeywordRankingOnly(t *testing.T) {
	corpus := []domain.Chunk{
		chunkFor("y.md", "alpha details"),
		chunkFor("z.md", "alpha overview"),
	}
	vector := &vectorIndexFake{chunks: []domain.Chunk{
		chunkFor("x.md", "alpha intro"),
		chunkFor("y.md", "alpha details"),
	}}
	factory := func(chunks []domain.Chunk) ports.KeywordIndex {
		return &keywordIndexFake{chunks: chunks}
	}
	provider := NewRetrieverProvider(vector, factory, 0, nil)
	provider.SwapCorpus(corpus)

	ret, _, _, err := provider.Retriever(domain.StrategyHybrid, 4)
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	chunks, err := ret.Retrieve(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	// Vector contributions carry zero weight, so the keyword ranking leads
	// and the vector-only chunk trails with no score.
	want := []string{"y.md", "z.md", "x.md"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d fused chunks, got %d", len(want), len(chunks))
	}
	for i, source := range want {
		if chunks[i].Source() != source {
			t.Fatalf("position %d: expected %s, got %s", i, source, chunks[i].Source())
		}
	}
}

func TestRouterStrategyBehavesAsHybridAlias(t *testing.T) {
	corpus := []domain.Chunk{chunkFor("a.md", "text")}
	provider := newTestProvider(&vectorIndexFake{}, corpus)

	_, effective, _, err := provider.Retriever(domain.StrategyRouter, 4)
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	if effective != domain.StrategyHybrid {
		t.Fatalf("router strategy must resolve to hybrid at the adapter, got %s", effective)
	}
}

func TestSwapCorpusIsObservedByNewRetrievers(t *testing.T) {
	provider := newTestProvider(&vectorIndexFake{}, nil)
	if provider.DocumentCount() != 0 {
		t.Fatalf("expected empty corpus")
	}

	provider.SwapCorpus([]domain.Chunk{chunkFor("a.md", "text"), chunkFor("b.md", "text")})
	if provider.DocumentCount() != 2 {
		t.Fatalf("expected corpus of 2, got %d", provider.DocumentCount())
	}

	_, effective, _, err := provider.Retriever(domain.StrategyKeyword, 4)
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	if effective != domain.StrategyKeyword {
		t.Fatalf("keyword retrieval must be available after swap, got %s", effective)
	}
}
