package domain

import "fmt"

// Strategy selects how candidate chunks are retrieved for a question.
type Strategy string

const (
	StrategyVector  Strategy = "vector"
	StrategyKeyword Strategy = "keyword"
	StrategyHybrid  Strategy = "hybrid"

	// StrategyRouter is not a terminal strategy: the router resolves it to one
	// of the concrete strategies before retrieval runs. At the adapter layer it
	// is a legacy alias for hybrid.
	StrategyRouter Strategy = "router"

	// StrategyLLMFallback is reported when the answer was generated without
	// any retrieved context. It is never accepted as an input strategy.
	StrategyLLMFallback Strategy = "llm_fallback"
)

// ParseStrategy validates a caller-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyVector, StrategyKeyword, StrategyHybrid, StrategyRouter:
		return Strategy(s), nil
	default:
		return "", WrapError(ErrInvalidParameter, "parse strategy", fmt.Errorf("unsupported retrieval strategy: %q", s))
	}
}

// ChainType selects how retrieved chunks are assembled into a generation prompt.
type ChainType string

const (
	ChainStandard    ChainType = "standard"
	ChainMapReduce   ChainType = "map_reduce"
	ChainCompression ChainType = "compression"

	// ChainRouter means "let the router decide"; once routing has happened it
	// degrades to standard.
	ChainRouter ChainType = "router"

	// ChainDirectLLM denotes the no-retrieval fallback path. Callers cannot
	// request it directly.
	ChainDirectLLM ChainType = "direct_llm"
)

// ParseChainType validates a caller-supplied chain name.
func ParseChainType(s string) (ChainType, error) {
	switch ChainType(s) {
	case ChainStandard, ChainMapReduce, ChainCompression, ChainRouter:
		return ChainType(s), nil
	default:
		return "", WrapError(ErrInvalidParameter, "parse chain type", fmt.Errorf("unsupported chain type: %q", s))
	}
}

// RoutingRule maps question keywords to a retrieval strategy and chain type.
// Rules are evaluated in declared order; the first keyword hit wins.
type RoutingRule struct {
	Name     string    `yaml:"name" json:"name"`
	Keywords []string  `yaml:"keywords" json:"keywords"`
	Strategy Strategy  `yaml:"strategy" json:"strategy"`
	Chain    ChainType `yaml:"chain" json:"chain"`
}

// RouteDecision is the outcome of strategy routing.
type RouteDecision struct {
	Rule     string    `json:"rule"`
	Strategy Strategy  `json:"strategy"`
	Chain    ChainType `json:"chain"`
}

// FallbackReason explains why the pipeline degraded from the requested
// strategy. Empty means no fallback happened.
type FallbackReason string

const (
	FallbackNone FallbackReason = ""

	// FallbackNoCorpusDocuments: the keyword index needs the in-memory corpus
	// captured at build time; the index was loaded from persisted storage or a
	// build never ran.
	FallbackNoCorpusDocuments FallbackReason = "no_corpus_documents"

	// FallbackEmptyRetrieval: retrieval produced zero chunks, so the answer
	// was generated without context.
	FallbackEmptyRetrieval FallbackReason = "empty_retrieval"

	// FallbackStreamingUnsupported: the generation backend cannot stream, so
	// retrieval was skipped and the model answered the bare question in one
	// blocking call instead of a token stream.
	FallbackStreamingUnsupported FallbackReason = "streaming_unsupported"
)

// Answer is the result of one answer operation, streaming or not.
type Answer struct {
	Text     string         `json:"text"`
	Sources  []Chunk        `json:"sources"`
	Strategy Strategy       `json:"strategy"`
	Chain    ChainType      `json:"chain"`
	Fallback FallbackReason `json:"fallback,omitempty"`
}
