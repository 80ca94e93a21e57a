package domain

// Metadata keys shared across retrieval backends.
const (
	MetaSource     = "source"
	MetaScore      = "score"
	MetaChunkIndex = "chunk_index"
)

// Chunk is one retrievable unit of document text. Chunks are produced by the
// ingestion pipeline during a build and replaced wholesale on the next build;
// retrieval stages must never mutate a chunk in place.
type Chunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Source returns the value of the "source" metadata key, or "" when absent.
func (c Chunk) Source() string {
	if c.Metadata == nil {
		return ""
	}
	source, _ := c.Metadata[MetaSource].(string)
	return source
}

// Score returns the relevance score attached by a retrieval backend, 0 when absent.
func (c Chunk) Score() float64 {
	if c.Metadata == nil {
		return 0
	}
	switch v := c.Metadata[MetaScore].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// WithScore returns a copy of the chunk carrying the given score. The
// receiver's metadata map is not modified.
func (c Chunk) WithScore(score float64) Chunk {
	meta := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[MetaScore] = score
	return Chunk{Content: c.Content, Metadata: meta}
}
