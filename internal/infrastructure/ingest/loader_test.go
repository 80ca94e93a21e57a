package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
)

type storageFake struct {
	objects map[string]string
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func TestLoadAndChunkSplitsTextWithSourceMetadata(t *testing.T) {
	storage := &storageFake{objects: map[string]string{
		"staged/a.md": strings.Repeat("alpha bravo charlie ", 30),
	}}
	loader := NewLoader(storage, nil)

	chunks, err := loader.LoadAndChunk(context.Background(),
		[]ports.BuildInput{{Filename: "a.md", Key: "staged/a.md"}},
		ports.ChunkingOptions{Size: 200, Overlap: 50})
	if err != nil {
		t.Fatalf("LoadAndChunk() error = %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Source() != "a.md" {
			t.Fatalf("chunk %d missing source metadata: %+v", i, chunk.Metadata)
		}
		if chunk.Metadata[domain.MetaChunkIndex] != i {
			t.Fatalf("chunk %d has wrong index %v", i, chunk.Metadata[domain.MetaChunkIndex])
		}
	}
}

func TestLoadAndChunkSkipsEmptyDocuments(t *testing.T) {
	storage := &storageFake{objects: map[string]string{
		"staged/empty.txt": "   \n  ",
		"staged/full.txt":  "actual content here",
	}}
	loader := NewLoader(storage, nil)

	chunks, err := loader.LoadAndChunk(context.Background(),
		[]ports.BuildInput{
			{Filename: "empty.txt", Key: "staged/empty.txt"},
			{Filename: "full.txt", Key: "staged/full.txt"},
		},
		ports.ChunkingOptions{Size: 500, Overlap: 100})
	if err != nil {
		t.Fatalf("LoadAndChunk() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].Source() != "full.txt" {
		t.Fatalf("empty document must be skipped, got %+v", chunks)
	}
}

func TestLoadAndChunkMissingObjectFails(t *testing.T) {
	loader := NewLoader(&storageFake{objects: map[string]string{}}, nil)

	_, err := loader.LoadAndChunk(context.Background(),
		[]ports.BuildInput{{Filename: "a.md", Key: "staged/a.md"}},
		ports.ChunkingOptions{Size: 500, Overlap: 100})
	if err == nil {
		t.Fatalf("expected error for missing staged object")
	}
}

func TestLoadAndChunkBinaryInTextDocumentFails(t *testing.T) {
	storage := &storageFake{objects: map[string]string{
		"staged/bin.txt": string([]byte{0xff, 0xfe, 0x00, 0x01}),
	}}
	loader := NewLoader(storage, nil)

	_, err := loader.LoadAndChunk(context.Background(),
		[]ports.BuildInput{{Filename: "bin.txt", Key: "staged/bin.txt"}},
		ports.ChunkingOptions{Size: 500, Overlap: 100})
	if err == nil || !strings.Contains(err.Error(), "not a text document") {
		t.Fatalf("expected binary rejection, got %v", err)
	}
}
