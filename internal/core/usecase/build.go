package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

const jobTypeBuild = "index_build"

// BuildUseCase (re)builds the document index from staged source documents: it
// extracts and chunks the files, replaces the vector index contents, swaps the
// in-memory corpus used by keyword retrieval, and records the cycle both in
// the job tracker and the corpus registry. Build lifecycle events go out on
// the event bus best-effort.
type BuildUseCase struct {
	loader    ports.DocumentLoader
	vector    ports.VectorIndex
	retriever *RetrieverProvider
	corpora   ports.CorpusRepository
	events    ports.BuildEventBus
	jobs      *JobTracker
	chunking  ports.ChunkingOptions
	logger    *slog.Logger
}

func NewBuildUseCase(
	loader ports.DocumentLoader,
	vector ports.VectorIndex,
	retriever *RetrieverProvider,
	corpora ports.CorpusRepository,
	events ports.BuildEventBus,
	jobs *JobTracker,
	chunking ports.ChunkingOptions,
	logger *slog.Logger,
) *BuildUseCase {
	if chunking.Size <= 0 {
		chunking.Size = 500
	}
	if chunking.Overlap < 0 || chunking.Overlap >= chunking.Size {
		chunking.Overlap = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildUseCase{
		loader:    loader,
		vector:    vector,
		retriever: retriever,
		corpora:   corpora,
		events:    events,
		jobs:      jobs,
		chunking:  chunking,
		logger:    logger,
	}
}

// Build executes one full build cycle synchronously and reports the outcome.
func (uc *BuildUseCase) Build(ctx context.Context, req ports.BuildRequest) (*ports.BuildResult, error) {
	if len(req.Files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "build index",
			fmt.Errorf("at least one document is required"))
	}

	opts := uc.chunking
	if req.ChunkSize > 0 {
		opts.Size = req.ChunkSize
	}
	if req.ChunkOverlap >= 0 && req.ChunkOverlap < opts.Size {
		if req.ChunkOverlap > 0 {
			opts.Overlap = req.ChunkOverlap
		}
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("corpus-%s", time.Now().UTC().Format("20060102-150405"))
	}

	corpus := &domain.Corpus{
		ID:         uuid.NewString(),
		Name:       name,
		Collection: "documents",
		Status:     domain.CorpusBuilding,
	}
	jobID := uc.jobs.Create(jobTypeBuild, map[string]any{
		"corpus_id": corpus.ID,
		"documents": len(req.Files),
	})

	if err := uc.corpora.Create(ctx, corpus); err != nil {
		return nil, uc.fail(ctx, jobID, corpus.ID, fmt.Errorf("register corpus: %w", err))
	}

	uc.jobs.Update(jobID, domain.JobRunning, "extracting documents", nil)
	uc.publish(ctx, jobID, corpus.ID, "running", 0, 0, "")

	chunks, err := uc.loader.LoadAndChunk(ctx, req.Files, opts)
	if err != nil {
		return nil, uc.fail(ctx, jobID, corpus.ID, fmt.Errorf("load documents: %w", err))
	}
	if len(chunks) == 0 {
		return nil, uc.fail(ctx, jobID, corpus.ID, fmt.Errorf("documents produced no text chunks"))
	}

	uc.jobs.Update(jobID, domain.JobRunning, "indexing chunks", map[string]any{"chunks": len(chunks)})

	if err := uc.vector.Build(ctx, chunks); err != nil {
		return nil, uc.fail(ctx, jobID, corpus.ID, fmt.Errorf("build vector index: %w", err))
	}

	// Point of no return: retrieval now serves the new corpus.
	uc.retriever.SwapCorpus(chunks)

	if err := uc.corpora.UpdateCounts(ctx, corpus.ID, len(req.Files), len(chunks)); err != nil {
		uc.logger.Warn("corpus count update failed", "corpus_id", corpus.ID, "error", err)
	}
	if err := uc.corpora.UpdateStatus(ctx, corpus.ID, domain.CorpusReady, ""); err != nil {
		uc.logger.Warn("corpus status update failed", "corpus_id", corpus.ID, "error", err)
	}

	uc.jobs.Update(jobID, domain.JobCompleted, "index built", map[string]any{"chunks": len(chunks)})
	uc.publish(ctx, jobID, corpus.ID, "completed", len(req.Files), len(chunks), "")

	uc.logger.Info("index build completed",
		"job_id", jobID,
		"corpus_id", corpus.ID,
		"documents", len(req.Files),
		"chunks", len(chunks))

	return &ports.BuildResult{
		JobID:     jobID,
		CorpusID:  corpus.ID,
		Documents: len(req.Files),
		Chunks:    len(chunks),
	}, nil
}

// fail marks the job and corpus failed and returns the wrapped error.
func (uc *BuildUseCase) fail(ctx context.Context, jobID, corpusID string, err error) error {
	uc.logger.Error("index build failed", "job_id", jobID, "corpus_id", corpusID, "error", err)

	uc.jobs.Update(jobID, domain.JobFailed, err.Error(), nil)
	if statusErr := uc.corpora.UpdateStatus(ctx, corpusID, domain.CorpusFailed, err.Error()); statusErr != nil {
		uc.logger.Warn("corpus status update failed", "corpus_id", corpusID, "error", statusErr)
	}
	uc.publish(ctx, jobID, corpusID, "failed", 0, 0, err.Error())

	return domain.WrapError(domain.ErrBuildFailed, "build index", err)
}

// publish sends a lifecycle event; delivery is best-effort and never fails the
// build.
func (uc *BuildUseCase) publish(ctx context.Context, jobID, corpusID, status string, documents, chunks int, message string) {
	if uc.events == nil {
		return
	}
	event := ports.BuildEvent{
		JobID:     jobID,
		CorpusID:  corpusID,
		Status:    status,
		Documents: documents,
		Chunks:    chunks,
		Message:   message,
		At:        time.Now().UTC(),
	}
	if err := uc.events.PublishBuildEvent(ctx, event); err != nil {
		uc.logger.Warn("build event publish failed", "job_id", jobID, "status", status, "error", err)
	}
}
