// Package ingest turns staged source documents into retrievable chunks.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
	"github.com/ametelin/docqa/internal/infrastructure/chunking"
	"github.com/ametelin/docqa/internal/infrastructure/extractor/excel"
	"github.com/ametelin/docqa/internal/infrastructure/extractor/pdftext"
	"github.com/ametelin/docqa/internal/infrastructure/extractor/plaintext"
)

type extractFunc func(r io.Reader, filename string) (string, error)

// Loader extracts text from staged documents by file extension and splits it
// into overlapping chunks. Documents that extract to empty text are skipped,
// not failed: a scanned PDF should not abort the whole build.
type Loader struct {
	storage ports.ObjectStorage
	logger  *slog.Logger
}

func NewLoader(storage ports.ObjectStorage, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{storage: storage, logger: logger}
}

func (l *Loader) LoadAndChunk(ctx context.Context, files []ports.BuildInput, opts ports.ChunkingOptions) ([]domain.Chunk, error) {
	splitter := chunking.NewSplitter(opts.Size, opts.Overlap)

	var out []domain.Chunk
	for _, file := range files {
		text, err := l.extract(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", file.Filename, err)
		}
		if text == "" {
			l.logger.Warn("document produced no text, skipping", "filename", file.Filename)
			continue
		}

		for i, piece := range splitter.Split(text) {
			out = append(out, domain.Chunk{
				Content: piece,
				Metadata: map[string]any{
					domain.MetaSource:     file.Filename,
					domain.MetaChunkIndex: i,
				},
			})
		}
	}
	return out, nil
}

func (l *Loader) extract(ctx context.Context, file ports.BuildInput) (string, error) {
	reader, err := l.storage.Open(ctx, file.Key)
	if err != nil {
		return "", fmt.Errorf("open staged document: %w", err)
	}
	defer reader.Close()

	return extractorFor(file.Filename)(reader, file.Filename)
}

func extractorFor(filename string) extractFunc {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdftext.Extract
	case ".xlsx", ".xlsm", ".xls":
		return excel.Extract
	default:
		return plaintext.Extract
	}
}
