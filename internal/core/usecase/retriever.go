package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

// Retriever produces one finite candidate ranking per query. A retriever is
// not restartable: issue a fresh Retrieve call per query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.Chunk, error)
}

// RetrieverProvider owns the document collection captured at the last build
// and hands out retrievers per strategy. The corpus slice is replaced
// wholesale on each successful build; in-flight readers observe either the
// previous or the new corpus, never a partial one.
type RetrieverProvider struct {
	vector          ports.VectorIndex
	newKeywordIndex ports.KeywordIndexFactory
	alpha           float64
	logger          *slog.Logger

	mu     sync.RWMutex
	corpus []domain.Chunk
}

func NewRetrieverProvider(
	vector ports.VectorIndex,
	newKeywordIndex ports.KeywordIndexFactory,
	alpha float64,
	logger *slog.Logger,
) *RetrieverProvider {
	// Clamp, don't default: alpha 0 is a legitimate pure-keyword weighting.
	// The configuration layer owns the 0.6 default.
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieverProvider{
		vector:          vector,
		newKeywordIndex: newKeywordIndex,
		alpha:           alpha,
		logger:          logger,
	}
}

// SwapCorpus atomically replaces the in-memory document collection.
func (p *RetrieverProvider) SwapCorpus(chunks []domain.Chunk) {
	p.mu.Lock()
	p.corpus = chunks
	p.mu.Unlock()
}

func (p *RetrieverProvider) snapshot() []domain.Chunk {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.corpus
}

// DocumentCount reports the size of the in-memory corpus.
func (p *RetrieverProvider) DocumentCount() int {
	return len(p.snapshot())
}

// Ready reports whether a vector index exists, built now or loaded from
// persisted storage.
func (p *RetrieverProvider) Ready(ctx context.Context) bool {
	ok, err := p.vector.Exists(ctx)
	if err != nil {
		p.logger.Warn("vector index existence probe failed", "error", err)
		return false
	}
	return ok
}

// Retriever resolves a strategy into a concrete retriever. It returns the
// effective strategy (which may differ from the requested one after a soft
// fallback) plus a structured reason explaining any fallback. Keyword
// unavailability degrades to vector retrieval; everything else is surfaced.
func (p *RetrieverProvider) Retriever(strategy domain.Strategy, topK int) (Retriever, domain.Strategy, domain.FallbackReason, error) {
	if topK <= 0 {
		return nil, "", domain.FallbackNone,
			domain.WrapError(domain.ErrInvalidParameter, "get retriever", fmt.Errorf("top_k must be positive, got %d", topK))
	}

	vectorRet := &vectorRetriever{index: p.vector, topK: topK}

	switch strategy {
	case domain.StrategyVector:
		return vectorRet, domain.StrategyVector, domain.FallbackNone, nil

	case domain.StrategyKeyword:
		keywordRet, reason := p.keywordRetriever(topK)
		if keywordRet == nil {
			p.logger.Warn("keyword retrieval unavailable, falling back to vector",
				"requested_strategy", strategy, "reason", reason)
			return vectorRet, domain.StrategyVector, reason, nil
		}
		return keywordRet, domain.StrategyKeyword, domain.FallbackNone, nil

	case domain.StrategyHybrid, domain.StrategyRouter:
		// router is a legacy alias here: the strategy router has already
		// resolved its meaning upstream.
		keywordRet, reason := p.keywordRetriever(topK)
		if keywordRet == nil {
			p.logger.Warn("keyword retrieval unavailable, falling back to vector",
				"requested_strategy", strategy, "reason", reason)
			return vectorRet, domain.StrategyVector, reason, nil
		}
		hybrid := &hybridRetriever{
			vector:  vectorRet,
			keyword: keywordRet,
			alpha:   p.alpha,
		}
		return hybrid, domain.StrategyHybrid, domain.FallbackNone, nil

	default:
		return nil, "", domain.FallbackNone,
			domain.WrapError(domain.ErrInvalidParameter, "get retriever", fmt.Errorf("unsupported retrieval strategy: %q", strategy))
	}
}

// keywordRetriever builds the keyword ranking structure lazily from the corpus
// captured at build time. Without in-memory documents (index loaded from
// persisted storage, or build never ran) keyword retrieval is unavailable.
func (p *RetrieverProvider) keywordRetriever(topK int) (Retriever, domain.FallbackReason) {
	docs := p.snapshot()
	if len(docs) == 0 {
		return nil, domain.FallbackNoCorpusDocuments
	}
	return &keywordRetriever{index: p.newKeywordIndex(docs), topK: topK}, domain.FallbackNone
}

type vectorRetriever struct {
	index ports.VectorIndex
	topK  int
}

func (r *vectorRetriever) Retrieve(ctx context.Context, query string) ([]domain.Chunk, error) {
	chunks, err := r.index.SimilaritySearch(ctx, query, r.topK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "vector retrieval", err)
	}
	return chunks, nil
}

type keywordRetriever struct {
	index ports.KeywordIndex
	topK  int
}

func (r *keywordRetriever) Retrieve(_ context.Context, query string) ([]domain.Chunk, error) {
	return r.index.Search(query, r.topK), nil
}

type hybridRetriever struct {
	vector  Retriever
	keyword Retriever
	alpha   float64
}

func (r *hybridRetriever) Retrieve(ctx context.Context, query string) ([]domain.Chunk, error) {
	vectorChunks, err := r.vector.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	keywordChunks, err := r.keyword.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	return fuseWeightedRRF(vectorChunks, keywordChunks, r.alpha), nil
}
