package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

// AnswerDefaults are the configured values applied when a request leaves the
// corresponding field empty.
type AnswerDefaults struct {
	Strategy domain.Strategy
	TopK     int
}

// AnswerUseCase answers questions over the indexed document set: it resolves a
// retrieval strategy and chain type, retrieves and optionally reranks
// candidate chunks, and generates the answer. With zero retrieved chunks it
// degrades to a direct generation call so the caller always gets an answer.
type AnswerUseCase struct {
	router    *StrategyRouter
	retriever *RetrieverProvider
	rerank    *RerankStage
	generator ports.Generator
	defaults  AnswerDefaults
	logger    *slog.Logger
}

func NewAnswerUseCase(
	router *StrategyRouter,
	retriever *RetrieverProvider,
	rerank *RerankStage,
	generator ports.Generator,
	defaults AnswerDefaults,
	logger *slog.Logger,
) *AnswerUseCase {
	if defaults.Strategy == "" {
		defaults.Strategy = domain.StrategyVector
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerUseCase{
		router:    router,
		retriever: retriever,
		rerank:    rerank,
		generator: generator,
		defaults:  defaults,
		logger:    logger,
	}
}

// answerSpec is a fully resolved request: every field validated and defaulted.
type answerSpec struct {
	question string
	strategy domain.Strategy
	chain    domain.ChainType
	topK     int
	routed   string // name of the routing rule that fired, empty if none
}

// resolve validates the request and settles strategy, chain and top-k. It is
// pure (no retrieval, no generation), so the streaming path can run it
// synchronously and report parameter errors before any event is emitted.
func (uc *AnswerUseCase) resolve(req ports.AnswerRequest) (answerSpec, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return answerSpec{}, domain.WrapError(domain.ErrInvalidParameter, "resolve answer request",
			fmt.Errorf("question must not be empty"))
	}

	spec := answerSpec{question: question, topK: req.TopK}
	if spec.topK <= 0 {
		spec.topK = uc.defaults.TopK
	}

	if uc.router.ShouldRoute(req.Chain, req.Strategy) {
		decision := uc.router.Route(question)
		spec.strategy = decision.Strategy
		spec.chain = decision.Chain
		spec.routed = decision.Rule
		return spec, nil
	}

	if req.Strategy == "" {
		spec.strategy = pickStrategyByKeywords(question, uc.defaults.Strategy)
	} else {
		strategy, err := domain.ParseStrategy(req.Strategy)
		if err != nil {
			return answerSpec{}, domain.WrapError(domain.ErrInvalidParameter, "resolve answer request", err)
		}
		spec.strategy = strategy
	}

	if req.Chain == "" {
		spec.chain = domain.ChainStandard
	} else {
		chain, err := domain.ParseChainType(req.Chain)
		if err != nil {
			return answerSpec{}, domain.WrapError(domain.ErrInvalidParameter, "resolve answer request", err)
		}
		spec.chain = chain
	}
	return spec, nil
}

// gather runs retrieval and the optional rerank stage. The returned strategy
// is the effective one after any soft fallback.
func (uc *AnswerUseCase) gather(ctx context.Context, spec answerSpec) ([]domain.Chunk, domain.Strategy, domain.FallbackReason, error) {
	retriever, effective, fallback, err := uc.retriever.Retriever(spec.strategy, spec.topK)
	if err != nil {
		return nil, "", domain.FallbackNone, err
	}

	chunks, err := retriever.Retrieve(ctx, spec.question)
	if err != nil {
		return nil, "", domain.FallbackNone, err
	}

	if uc.rerank != nil && uc.rerank.Enabled() && len(chunks) > 0 {
		chunks, err = uc.rerank.Rerank(ctx, spec.question, chunks, 0)
		if err != nil {
			return nil, "", domain.FallbackNone, err
		}
	}
	return chunks, effective, fallback, nil
}

// Answer executes the full pipeline for one question.
func (uc *AnswerUseCase) Answer(ctx context.Context, req ports.AnswerRequest) (*domain.Answer, error) {
	spec, err := uc.resolve(req)
	if err != nil {
		return nil, err
	}
	return uc.answer(ctx, spec, nil)
}

// answer runs retrieval and generation for a resolved spec. finalGenerate, if
// non-nil, handles the single final generation call (the streaming hook).
func (uc *AnswerUseCase) answer(ctx context.Context, spec answerSpec, finalGenerate generateFunc) (*domain.Answer, error) {
	chunks, effective, fallback, err := uc.gather(ctx, spec)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("answering question",
		"strategy", effective,
		"chain", spec.chain,
		"top_k", spec.topK,
		"rule", spec.routed,
		"chunks", len(chunks),
		"fallback", fallback)

	if len(chunks) == 0 {
		return uc.directAnswer(ctx, spec.question, domain.FallbackEmptyRetrieval)
	}

	text, err := runChain(ctx, uc.generator, spec.chain, spec.question, chunks, finalGenerate)
	if err != nil {
		return nil, err
	}
	return &domain.Answer{
		Text:     text,
		Sources:  chunks,
		Strategy: effective,
		Chain:    spec.chain,
		Fallback: fallback,
	}, nil
}

// directAnswer is the no-context path: the model answers the bare question in
// one blocking call. It never streams, even when the caller asked for a token
// stream, so the reason is the only trace of which transition fired.
func (uc *AnswerUseCase) directAnswer(ctx context.Context, question string, reason domain.FallbackReason) (*domain.Answer, error) {
	uc.logger.Warn("answering without retrieved context", "reason", reason)

	text, err := uc.generator.Generate(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "direct answer", err)
	}
	return &domain.Answer{
		Text:     text,
		Sources:  []domain.Chunk{},
		Strategy: domain.StrategyLLMFallback,
		Chain:    domain.ChainDirectLLM,
		Fallback: reason,
	}, nil
}
