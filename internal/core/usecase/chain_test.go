package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ametelin/docqa/internal/core/domain"
)

// scriptedGenerator answers prompts by substring match, recording every prompt
// it sees.
type scriptedGenerator struct {
	prompts []string
	answer  func(prompt string) (string, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.answer != nil {
		return g.answer(prompt)
	}
	return "answer", nil
}

func TestRunChainStandardSinglePromptWithAllChunks(t *testing.T) {
	gen := &scriptedGenerator{}
	chunks := []domain.Chunk{chunkFor("a.md", "first fact"), chunkFor("b.md", "second fact")}

	answer, err := runChain(context.Background(), gen, domain.ChainStandard, "question?", chunks, nil)
	if err != nil {
		t.Fatalf("runChain() error = %v", err)
	}
	if answer != "answer" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("standard chain must make exactly one call, got %d", len(gen.prompts))
	}
	for _, fragment := range []string{"first fact", "second fact", "question?"} {
		if !strings.Contains(gen.prompts[0], fragment) {
			t.Fatalf("stuff prompt missing %q", fragment)
		}
	}
}

func TestRunChainRouterAliasesStandard(t *testing.T) {
	gen := &scriptedGenerator{}
	_, err := runChain(context.Background(), gen, domain.ChainRouter, "q", []domain.Chunk{chunkFor("a.md", "x")}, nil)
	if err != nil {
		t.Fatalf("runChain() error = %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("router chain must behave like standard, got %d calls", len(gen.prompts))
	}
}

func TestRunChainMapReduceCallsPerChunkThenCombines(t *testing.T) {
	gen := &scriptedGenerator{
		answer: func(prompt string) (string, error) {
			if strings.Contains(prompt, "KeyPoints") {
				return "combined", nil
			}
			return "point", nil
		},
	}
	chunks := []domain.Chunk{chunkFor("a.md", "one"), chunkFor("b.md", "two"), chunkFor("c.md", "three")}

	answer, err := runChain(context.Background(), gen, domain.ChainMapReduce, "q", chunks, nil)
	if err != nil {
		t.Fatalf("runChain() error = %v", err)
	}
	if answer != "combined" {
		t.Fatalf("expected combine result, got %q", answer)
	}
	if len(gen.prompts) != len(chunks)+1 {
		t.Fatalf("expected %d calls, got %d", len(chunks)+1, len(gen.prompts))
	}
}

func TestRunChainCompressionDropsIrrelevantChunks(t *testing.T) {
	gen := &scriptedGenerator{
		answer: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "extract any part"):
				if strings.Contains(prompt, "irrelevant") {
					return "NO_OUTPUT", nil
				}
				return "relevant excerpt", nil
			default:
				return "final", nil
			}
		},
	}
	chunks := []domain.Chunk{chunkFor("a.md", "useful content"), chunkFor("b.md", "irrelevant")}

	answer, err := runChain(context.Background(), gen, domain.ChainCompression, "q", chunks, nil)
	if err != nil {
		t.Fatalf("runChain() error = %v", err)
	}
	if answer != "final" {
		t.Fatalf("expected final answer, got %q", answer)
	}

	final := gen.prompts[len(gen.prompts)-1]
	if !strings.Contains(final, "relevant excerpt") {
		t.Fatalf("final prompt must contain surviving excerpt")
	}
	if strings.Contains(final, "irrelevant") {
		t.Fatalf("final prompt must not contain dropped chunk text")
	}
}

func TestRunChainGenerationErrorIsHard(t *testing.T) {
	gen := &scriptedGenerator{
		answer: func(string) (string, error) { return "", errors.New("model offline") },
	}

	_, err := runChain(context.Background(), gen, domain.ChainStandard, "q", []domain.Chunk{chunkFor("a.md", "x")}, nil)
	if !domain.IsKind(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failed error, got %v", err)
	}
}

func TestRunChainUsesInjectedFinalGenerate(t *testing.T) {
	gen := &scriptedGenerator{}
	var finalPrompt string
	final := func(_ context.Context, prompt string) (string, error) {
		finalPrompt = prompt
		return "streamed", nil
	}

	answer, err := runChain(context.Background(), gen, domain.ChainStandard, "q", []domain.Chunk{chunkFor("a.md", "x")}, final)
	if err != nil {
		t.Fatalf("runChain() error = %v", err)
	}
	if answer != "streamed" {
		t.Fatalf("expected injected final call result, got %q", answer)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("blocking generator must not be used for the final standard call")
	}
	if finalPrompt == "" {
		t.Fatalf("final generate must receive the assembled prompt")
	}
}
