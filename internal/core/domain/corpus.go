package domain

import "time"

// CorpusStatus tracks the persisted state of one indexed document set.
type CorpusStatus string

const (
	CorpusBuilding CorpusStatus = "building"
	CorpusReady    CorpusStatus = "ready"
	CorpusFailed   CorpusStatus = "failed"
)

// Corpus is the persisted metadata of one build cycle: which documents were
// indexed into which vector collection. Unlike jobs, corpus rows survive
// restarts.
type Corpus struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Collection string       `json:"collection"`
	Documents  int          `json:"documents"`
	Chunks     int          `json:"chunks"`
	Status     CorpusStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
