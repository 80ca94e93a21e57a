package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

// streamGenFake emits a fixed token sequence for every streamed call.
type streamGenFake struct {
	scriptedGenerator
	tokens    []string
	streamErr error
	supports  bool
}

func (g *streamGenFake) SupportsStreaming() bool { return g.supports }

func (g *streamGenFake) GenerateStream(_ context.Context, prompt string, emit func(token string) error) (string, error) {
	g.prompts = append(g.prompts, prompt)
	var b strings.Builder
	for _, token := range g.tokens {
		if err := emit(token); err != nil {
			return "", err
		}
		b.WriteString(token)
	}
	if g.streamErr != nil {
		return "", g.streamErr
	}
	return b.String(), nil
}

func collectEvents(t *testing.T, events <-chan domain.StreamEvent) []domain.StreamEvent {
	t.Helper()
	var out []domain.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-timeout:
			t.Fatalf("stream did not close, collected %d events", len(out))
		}
	}
}

func TestStreamAnswerEmitsTokensThenResult(t *testing.T) {
	vector := &vectorIndexFake{exists: true, chunks: []domain.Chunk{chunkFor("a.md", "context")}}
	gen := &streamGenFake{tokens: []string{"Hello", ", ", "world"}, supports: true}
	uc := newAnswerFixture(vector, nil, gen, nil)

	events, err := uc.StreamAnswer(context.Background(), ports.AnswerRequest{Question: "q", Strategy: "vector"})
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}

	collected := collectEvents(t, events)
	if len(collected) != 4 {
		t.Fatalf("expected 3 tokens + 1 result, got %d events", len(collected))
	}
	var text strings.Builder
	for _, event := range collected[:3] {
		if event.Type != domain.StreamToken {
			t.Fatalf("expected token event, got %s", event.Type)
		}
		text.WriteString(event.Token)
	}
	final := collected[3]
	if final.Type != domain.StreamResult {
		t.Fatalf("expected terminal result event, got %s", final.Type)
	}
	if final.Result.Text != text.String() {
		t.Fatalf("result text %q must equal joined tokens %q", final.Result.Text, text.String())
	}
	if final.Result.Fallback != domain.FallbackNone {
		t.Fatalf("unexpected fallback %q", final.Result.Fallback)
	}
}

func TestStreamAnswerNonStreamingBackendAnswersDirect(t *testing.T) {
	// A populated index must not matter: without streaming support the
	// request goes straight to direct generation, skipping retrieval.
	vector := &vectorIndexFake{exists: true, chunks: []domain.Chunk{chunkFor("a.md", "context")}}
	gen := &scriptedGenerator{answer: func(string) (string, error) { return "single shot", nil }}
	uc := newAnswerFixture(vector, nil, gen, nil)

	events, err := uc.StreamAnswer(context.Background(), ports.AnswerRequest{Question: "what is indexed?", Strategy: "vector"})
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}

	collected := collectEvents(t, events)
	if len(collected) != 1 {
		t.Fatalf("expected exactly one result event, got %d", len(collected))
	}
	if collected[0].Type != domain.StreamResult {
		t.Fatalf("expected result event, got %s", collected[0].Type)
	}
	result := collected[0].Result
	if result.Strategy != domain.StrategyLLMFallback || result.Chain != domain.ChainDirectLLM {
		t.Fatalf("expected llm_fallback/direct_llm, got %s/%s", result.Strategy, result.Chain)
	}
	if result.Fallback != domain.FallbackStreamingUnsupported {
		t.Fatalf("expected streaming_unsupported fallback, got %q", result.Fallback)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("direct answer must carry no sources, got %d", len(result.Sources))
	}
	if result.Text != "single shot" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "what is indexed?" {
		t.Fatalf("must generate from the bare question, got %q", gen.prompts)
	}
	if vector.lastK != 0 {
		t.Fatalf("retrieval must not run, searched with k=%d", vector.lastK)
	}
}

func TestStreamAnswerAdvertisedButDisabledStreamingAnswersDirect(t *testing.T) {
	vector := &vectorIndexFake{exists: true, chunks: []domain.Chunk{chunkFor("a.md", "context")}}
	gen := &streamGenFake{supports: false}
	gen.answer = func(string) (string, error) { return "blocking", nil }
	uc := newAnswerFixture(vector, nil, gen, nil)

	events, err := uc.StreamAnswer(context.Background(), ports.AnswerRequest{Question: "q", Strategy: "vector"})
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}

	collected := collectEvents(t, events)
	if len(collected) != 1 || collected[0].Type != domain.StreamResult {
		t.Fatalf("expected single result event, got %+v", collected)
	}
	result := collected[0].Result
	if result.Strategy != domain.StrategyLLMFallback || result.Chain != domain.ChainDirectLLM {
		t.Fatalf("expected llm_fallback/direct_llm, got %s/%s", result.Strategy, result.Chain)
	}
	if result.Fallback != domain.FallbackStreamingUnsupported {
		t.Fatalf("expected streaming_unsupported fallback, got %q", result.Fallback)
	}
}

func TestStreamAnswerEmptyRetrievalAnswersDirectWithoutTokens(t *testing.T) {
	// Empty preview on a streaming-capable backend: the direct answer is
	// delivered as one blocking result, never as a token stream.
	gen := &streamGenFake{tokens: []string{"tok1", "tok2"}, supports: true}
	gen.answer = func(string) (string, error) { return "best guess", nil }
	uc := newAnswerFixture(&vectorIndexFake{exists: true}, nil, gen, nil)

	events, err := uc.StreamAnswer(context.Background(), ports.AnswerRequest{Question: "anything?", Strategy: "vector"})
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}

	collected := collectEvents(t, events)
	if len(collected) != 1 {
		t.Fatalf("expected exactly one result event, got %d: %+v", len(collected), collected)
	}
	result := collected[0].Result
	if collected[0].Type != domain.StreamResult || result == nil {
		t.Fatalf("expected result event, got %s", collected[0].Type)
	}
	if result.Fallback != domain.FallbackEmptyRetrieval {
		t.Fatalf("expected empty_retrieval fallback, got %q", result.Fallback)
	}
	if result.Strategy != domain.StrategyLLMFallback || result.Chain != domain.ChainDirectLLM {
		t.Fatalf("expected llm_fallback/direct_llm, got %s/%s", result.Strategy, result.Chain)
	}
	if result.Text != "best guess" {
		t.Fatalf("unexpected text %q", result.Text)
	}
}

func TestStreamAnswerInvalidParametersReportedSynchronously(t *testing.T) {
	uc := newAnswerFixture(&vectorIndexFake{exists: true}, nil, &streamGenFake{supports: true}, nil)

	events, err := uc.StreamAnswer(context.Background(), ports.AnswerRequest{Question: "q", Chain: "recursive"})
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter error, got %v", err)
	}
	if events != nil {
		t.Fatalf("no channel must be returned on a synchronous error")
	}
}

func TestStreamAnswerGenerationErrorIsTerminal(t *testing.T) {
	vector := &vectorIndexFake{exists: true, chunks: []domain.Chunk{chunkFor("a.md", "context")}}
	gen := &streamGenFake{tokens: []string{"par"}, streamErr: errors.New("model offline"), supports: true}
	uc := newAnswerFixture(vector, nil, gen, nil)

	events, err := uc.StreamAnswer(context.Background(), ports.AnswerRequest{Question: "q", Strategy: "vector"})
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}

	collected := collectEvents(t, events)
	last := collected[len(collected)-1]
	if last.Type != domain.StreamError {
		t.Fatalf("expected terminal error event, got %s", last.Type)
	}
	if !domain.IsKind(last.Err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failed error, got %v", last.Err)
	}
	for _, event := range collected[:len(collected)-1] {
		if event.Type != domain.StreamToken {
			t.Fatalf("only token events may precede the terminal event, got %s", event.Type)
		}
	}
}

func TestStreamAnswerCancellationStopsGeneration(t *testing.T) {
	vector := &vectorIndexFake{exists: true, chunks: []domain.Chunk{chunkFor("a.md", "context")}}
	gen := &streamGenFake{tokens: []string{"one", "two", "three"}, supports: true}
	uc := newAnswerFixture(vector, nil, gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := uc.StreamAnswer(ctx, ports.AnswerRequest{Question: "q", Strategy: "vector"})
	if err != nil {
		t.Fatalf("StreamAnswer() error = %v", err)
	}

	// Read one token, then walk away.
	first := <-events
	if first.Type != domain.StreamToken {
		t.Fatalf("expected a token first, got %s", first.Type)
	}
	cancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type == domain.StreamResult {
				t.Fatalf("cancelled stream must not produce a result")
			}
		case <-timeout:
			t.Fatalf("stream did not close after cancellation")
		}
	}
}
