package usecase

import (
	"context"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

// StreamAnswer runs the same pipeline as Answer but emits the final generation
// call token by token. The returned channel carries zero or more token events
// followed by exactly one result or error event, then closes. Parameter errors
// are reported synchronously before any event is produced.
//
// When the generation backend cannot stream, retrieval is skipped entirely:
// the model answers the bare question single-shot and the lone result event
// reports strategy llm_fallback, chain direct_llm and a streaming_unsupported
// fallback, with no sources. Intermediate chain calls (map, combine
// preparation, compression extraction) never stream; only the final call does.
func (uc *AnswerUseCase) StreamAnswer(ctx context.Context, req ports.AnswerRequest) (<-chan domain.StreamEvent, error) {
	spec, err := uc.resolve(req)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.StreamEvent)
	go func() {
		defer close(events)

		streamer, ok := uc.generator.(ports.StreamingGenerator)
		if !ok || !streamer.SupportsStreaming() {
			answer, err := uc.directAnswer(ctx, spec.question, domain.FallbackStreamingUnsupported)
			if err != nil {
				uc.emit(ctx, events, domain.ErrorEvent(err))
				return
			}
			uc.emit(ctx, events, domain.ResultEvent(answer))
			return
		}

		final := func(gctx context.Context, prompt string) (string, error) {
			return streamer.GenerateStream(gctx, prompt, func(token string) error {
				// Token boundaries are the cancellation points: a cancelled
				// consumer stops generation via the emit error.
				select {
				case events <- domain.TokenEvent(token):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}

		answer, err := uc.answer(ctx, spec, final)
		if err != nil {
			uc.emit(ctx, events, domain.ErrorEvent(err))
			return
		}
		uc.emit(ctx, events, domain.ResultEvent(answer))
	}()
	return events, nil
}

// emit delivers the terminal event unless the consumer is already gone.
func (uc *AnswerUseCase) emit(ctx context.Context, events chan<- domain.StreamEvent, event domain.StreamEvent) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}
