package usecase

import (
	"fmt"
	"strings"

	"github.com/ametelin/docqa/internal/core/domain"
)

const baseInstructions = `You are a professional AI assistant. Use the knowledge base context below as your primary source. When the context does not fully address the question, supplement it with your own general knowledge. Always provide a confident, well-structured answer and close with a concise summary.`

// compressionNoOutput is the marker a model emits when a chunk contains
// nothing relevant to the question.
const compressionNoOutput = "NO_OUTPUT"

func formatChunkContext(chunks []domain.Chunk) string {
	var b strings.Builder
	for idx, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] source=%s\n%s\n\n", idx+1, chunk.Source(), chunk.Content)
	}
	return b.String()
}

// buildStuffPrompt assembles one prompt with all retrieved chunk text plus the
// question.
func buildStuffPrompt(question string, chunks []domain.Chunk) string {
	var b strings.Builder
	b.WriteString(baseInstructions)
	b.WriteString("\n\n<Knowledge Base>\n")
	b.WriteString(formatChunkContext(chunks))
	b.WriteString("</Knowledge Base>\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	b.WriteString("Respond in English with a direct answer and add bullet points when helpful.")
	return b.String()
}

// buildMapPrompt asks for the question-relevant points of a single chunk.
func buildMapPrompt(question string, chunk domain.Chunk) string {
	var b strings.Builder
	b.WriteString(baseInstructions)
	b.WriteString("\n\nThe following is a knowledge snippet. Extract the points that relate to the question.\n")
	b.WriteString("<Snippet>\n")
	b.WriteString(chunk.Content)
	b.WriteString("\n</Snippet>\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	b.WriteString("List the key information that addresses the question.")
	return b.String()
}

// buildCombinePrompt merges per-chunk extractions into the final answer.
func buildCombinePrompt(question string, points []string) string {
	var b strings.Builder
	b.WriteString(baseInstructions)
	b.WriteString("\n\nYou have collected several summaries:\n<KeyPoints>\n")
	for idx, point := range points {
		fmt.Fprintf(&b, "[%d] %s\n", idx+1, point)
	}
	b.WriteString("</KeyPoints>\n\n")
	fmt.Fprintf(&b, "Answer the question using these points: %s\n", question)
	b.WriteString("Add general knowledge when helpful and deliver a complete answer in English.")
	return b.String()
}

// buildCompressionPrompt asks for verbatim question-relevant excerpts of one
// chunk, or the NO_OUTPUT marker.
func buildCompressionPrompt(question string, chunk domain.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Given the following question and context, extract any part of the context *as is* that is relevant to answer the question. If none of the context is relevant, return %s.\n\n", compressionNoOutput)
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Context:\n")
	b.WriteString(chunk.Content)
	return b.String()
}
