package usecase

import (
	"context"
	"strings"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

// generateFunc issues one generation call. The final call of a chain is
// injectable so the streaming path can swap in a token-emitting variant while
// intermediate calls stay blocking.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// runChain assembles retrieved chunks into a generation prompt per chain type
// and produces the answer text. finalGenerate handles the last generation call
// of the chain; intermediate calls always use the blocking generator.
func runChain(
	ctx context.Context,
	generator ports.Generator,
	chain domain.ChainType,
	question string,
	chunks []domain.Chunk,
	finalGenerate generateFunc,
) (string, error) {
	if finalGenerate == nil {
		finalGenerate = generator.Generate
	}

	switch chain {
	case domain.ChainMapReduce:
		return runMapReduce(ctx, generator, question, chunks, finalGenerate)
	case domain.ChainCompression:
		return runCompression(ctx, generator, question, chunks, finalGenerate)
	default:
		// standard; router degrades to standard once strategy routing has
		// already happened.
		return runStuff(ctx, question, chunks, finalGenerate)
	}
}

func runStuff(ctx context.Context, question string, chunks []domain.Chunk, finalGenerate generateFunc) (string, error) {
	answer, err := finalGenerate(ctx, buildStuffPrompt(question, chunks))
	if err != nil {
		return "", domain.WrapError(domain.ErrGenerationFailed, "stuff chain", err)
	}
	return answer, nil
}

// runMapReduce issues one extraction call per chunk and one combine call over
// the collected points.
func runMapReduce(
	ctx context.Context,
	generator ports.Generator,
	question string,
	chunks []domain.Chunk,
	finalGenerate generateFunc,
) (string, error) {
	points := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		point, err := generator.Generate(ctx, buildMapPrompt(question, chunk))
		if err != nil {
			return "", domain.WrapError(domain.ErrGenerationFailed, "map_reduce chain: map step", err)
		}
		points = append(points, strings.TrimSpace(point))
	}

	answer, err := finalGenerate(ctx, buildCombinePrompt(question, points))
	if err != nil {
		return "", domain.WrapError(domain.ErrGenerationFailed, "map_reduce chain: combine step", err)
	}
	return answer, nil
}

// runCompression extracts question-relevant excerpts per chunk, then runs the
// stuff pattern over the compressed set. When extraction strips every chunk,
// the uncompressed chunks are used so the final call still sees the sources.
func runCompression(
	ctx context.Context,
	generator ports.Generator,
	question string,
	chunks []domain.Chunk,
	finalGenerate generateFunc,
) (string, error) {
	compressed := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		excerpt, err := generator.Generate(ctx, buildCompressionPrompt(question, chunk))
		if err != nil {
			return "", domain.WrapError(domain.ErrGenerationFailed, "compression chain: extract step", err)
		}
		excerpt = strings.TrimSpace(excerpt)
		if excerpt == "" || strings.EqualFold(excerpt, compressionNoOutput) {
			continue
		}
		compressed = append(compressed, domain.Chunk{Content: excerpt, Metadata: chunk.Metadata})
	}
	if len(compressed) == 0 {
		compressed = chunks
	}
	return runStuff(ctx, question, compressed, finalGenerate)
}
