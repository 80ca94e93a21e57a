package ports

import (
	"context"
	"io"
	"time"

	"github.com/ametelin/docqa/internal/core/domain"
)

// VectorIndex wraps the vector similarity backend. Embedding happens behind
// this boundary; the core never touches vectors directly.
type VectorIndex interface {
	// Build replaces the index contents with the given chunks.
	Build(ctx context.Context, chunks []domain.Chunk) error
	// Exists reports whether an index is present (built now or persisted earlier).
	Exists(ctx context.Context) (bool, error)
	// SimilaritySearch returns the k nearest chunks for the query, best first,
	// each carrying a relevance score in its metadata.
	SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Chunk, error)
}

// KeywordIndex ranks chunks lexically. Instances are built on demand from the
// in-memory corpus captured at build time and are safe for concurrent reads.
type KeywordIndex interface {
	Search(query string, k int) []domain.Chunk
}

// KeywordIndexFactory builds a keyword ranking structure over a document set.
type KeywordIndexFactory func(chunks []domain.Chunk) KeywordIndex

// Generator is the blocking generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamingGenerator is implemented by generation backends that can emit
// incremental tokens. SupportsStreaming lets a backend advertise the
// capability at runtime; callers must check it before GenerateStream.
type StreamingGenerator interface {
	Generator
	SupportsStreaming() bool
	// GenerateStream calls emit once per token in emission order and returns
	// the full answer text. A non-nil error from emit aborts generation.
	GenerateStream(ctx context.Context, prompt string, emit func(token string) error) (string, error)
}

// RerankResult is a server-assigned relevance for one input document,
// addressed by its index in the request.
type RerankResult struct {
	Index     int
	Relevance float64
}

// Reranker scores documents against a query and returns (index, relevance)
// pairs. Local cross-encoder backends score every document; remote backends
// may already truncate to topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
}

// BuildInput names one staged source document for a build.
type BuildInput struct {
	Filename string
	Key      string
}

// ChunkingOptions override the configured chunking defaults for one build.
type ChunkingOptions struct {
	Size    int
	Overlap int
}

// DocumentLoader is the ingestion collaborator: it extracts text from staged
// documents and splits it into chunks. Chunk order and count are opaque to the
// core.
type DocumentLoader interface {
	LoadAndChunk(ctx context.Context, files []BuildInput, opts ChunkingOptions) ([]domain.Chunk, error)
}

// ObjectStorage stages uploaded source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CorpusRepository persists build-cycle metadata.
type CorpusRepository interface {
	Create(ctx context.Context, corpus *domain.Corpus) error
	GetByID(ctx context.Context, id string) (*domain.Corpus, error)
	UpdateStatus(ctx context.Context, id string, status domain.CorpusStatus, errMessage string) error
	UpdateCounts(ctx context.Context, id string, documents, chunks int) error
}

// BuildEvent is a best-effort lifecycle notification about one build job.
type BuildEvent struct {
	JobID     string    `json:"job_id"`
	CorpusID  string    `json:"corpus_id"`
	Status    string    `json:"status"`
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// BuildEventBus publishes and consumes build lifecycle events.
type BuildEventBus interface {
	PublishBuildEvent(ctx context.Context, event BuildEvent) error
	SubscribeBuildEvents(ctx context.Context, handler func(context.Context, BuildEvent) error) error
}
