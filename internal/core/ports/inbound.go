package ports

import (
	"context"

	"github.com/ametelin/docqa/internal/core/domain"
)

// AnswerRequest is one question against the indexed document set. Strategy and
// Chain are optional overrides; TopK <= 0 means "use the configured default".
type AnswerRequest struct {
	Question string
	Strategy string
	Chain    string
	TopK     int
}

// AnswerService is the inbound contract for question answering.
type AnswerService interface {
	Answer(ctx context.Context, req AnswerRequest) (*domain.Answer, error)
	// StreamAnswer returns a channel of token events followed by exactly one
	// result or error event. Invalid parameters are reported synchronously.
	StreamAnswer(ctx context.Context, req AnswerRequest) (<-chan domain.StreamEvent, error)
}

// BuildRequest carries staged documents plus chunking overrides for one build.
type BuildRequest struct {
	Name         string
	Files        []BuildInput
	ChunkSize    int
	ChunkOverlap int
}

// BuildResult reports the completed build.
type BuildResult struct {
	JobID     string `json:"job_id"`
	CorpusID  string `json:"corpus_id"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// IndexBuilder is the inbound contract for (re)building the document index.
type IndexBuilder interface {
	Build(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// JobReader exposes job telemetry lookups.
type JobReader interface {
	Get(id string) (*domain.Job, bool)
	CountPending() int
}

// IndexStatus reports retrieval readiness for health checks.
type IndexStatus interface {
	Ready(ctx context.Context) bool
	DocumentCount() int
}
