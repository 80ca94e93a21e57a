package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

// RerankVariant is the backend family selected for the reranking stage.
type RerankVariant string

const (
	RerankOff          RerankVariant = ""
	RerankCohere       RerankVariant = "cohere"
	RerankBGE          RerankVariant = "bge"
	RerankCrossEncoder RerankVariant = "cross_encoder"
)

// rerankVariantPatterns is the exhaustive name-pattern table. Any other
// non-empty model name selects the generic local cross-encoder.
var rerankVariantPatterns = []struct {
	pattern string
	variant RerankVariant
}{
	{"cohere", RerankCohere},
	{"bge", RerankBGE},
}

// DetectRerankVariant maps a configured reranker model name to a backend
// variant. An empty name disables reranking.
func DetectRerankVariant(modelName string) RerankVariant {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return RerankOff
	}
	for _, entry := range rerankVariantPatterns {
		if strings.Contains(name, entry.pattern) {
			return entry.variant
		}
	}
	return RerankCrossEncoder
}

// RerankPolicy decides what happens when an in-flight rerank call fails:
// fail-closed surfaces the error to the caller, fail-open logs it and passes
// the input through unreranked (compatibility mode).
type RerankPolicy string

const (
	RerankFailClosed RerankPolicy = "fail-closed"
	RerankFailOpen   RerankPolicy = "fail-open"
)

// RerankStage reorders and truncates retrieved chunks with a configured
// scoring backend. A stage that cannot satisfy its backend dependency at
// construction time disables itself with a reason instead of failing later
// calls; Enabled is the single source of truth.
type RerankStage struct {
	variant        RerankVariant
	backend        ports.Reranker
	topK           int
	policy         RerankPolicy
	disabledReason string
	logger         *slog.Logger
}

// NewRerankStage transitions the configured stage to Active or
// Disabled(reason). backend may be nil when its runtime dependency or
// credential is missing; unavailableReason then explains why.
func NewRerankStage(
	variant RerankVariant,
	backend ports.Reranker,
	unavailableReason string,
	topK int,
	policy RerankPolicy,
	logger *slog.Logger,
) *RerankStage {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = 4
	}
	if policy != RerankFailOpen {
		policy = RerankFailClosed
	}

	stage := &RerankStage{
		variant: variant,
		backend: backend,
		topK:    topK,
		policy:  policy,
		logger:  logger,
	}

	switch {
	case variant == RerankOff:
		stage.disabledReason = "no reranker model configured"
	case backend == nil:
		if unavailableReason == "" {
			unavailableReason = "backend dependency unavailable"
		}
		stage.disabledReason = unavailableReason
		stage.variant = RerankOff
		logger.Warn("reranking disabled", "configured_variant", variant, "reason", unavailableReason)
	}
	return stage
}

// Enabled reports whether the stage is active. Callers must never assume a
// configured reranker is active without checking this.
func (s *RerankStage) Enabled() bool {
	return s.variant != RerankOff && s.backend != nil
}

// DisabledReason explains an inactive stage; empty when enabled.
func (s *RerankStage) DisabledReason() string {
	return s.disabledReason
}

func (s *RerankStage) Variant() RerankVariant {
	return s.variant
}

// Rerank reorders chunks by backend relevance, best first, truncated to
// min(topK or the configured default, len(chunks)). The input is never
// mutated; on empty input or a disabled stage it is returned unchanged.
func (s *RerankStage) Rerank(ctx context.Context, query string, chunks []domain.Chunk, topK int) ([]domain.Chunk, error) {
	if !s.Enabled() || len(chunks) == 0 {
		return chunks, nil
	}

	limit := topK
	if limit <= 0 {
		limit = s.topK
	}
	if limit > len(chunks) {
		limit = len(chunks)
	}

	documents := make([]string, len(chunks))
	for i, chunk := range chunks {
		documents[i] = chunk.Content
	}

	results, err := s.backend.Rerank(ctx, query, documents, limit)
	if err != nil {
		if s.policy == RerankFailOpen {
			s.logger.Warn("rerank call failed, passing candidates through unreranked",
				"variant", s.variant, "error", err)
			return chunks, nil
		}
		return nil, domain.WrapError(domain.ErrRerankFailed, "rerank", err)
	}

	ordered := make([]ports.RerankResult, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(chunks) {
			return nil, domain.WrapError(domain.ErrRerankFailed, "rerank",
				fmt.Errorf("backend returned out-of-range index %d for %d documents", r.Index, len(chunks)))
		}
		ordered = append(ordered, r)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Relevance > ordered[j].Relevance
	})
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]domain.Chunk, 0, len(ordered))
	for _, r := range ordered {
		out = append(out, chunks[r.Index].WithScore(r.Relevance))
	}
	return out, nil
}
