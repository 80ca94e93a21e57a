package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ametelin/docqa/internal/core/domain"
)

const defaultJobCapacity = 1024

// JobTracker is an in-memory registry of long-running operations. Records live
// for the process lifetime; when the capacity is exceeded the oldest terminal
// records are evicted first.
type JobTracker struct {
	mu       sync.Mutex
	jobs     map[string]*domain.Job
	order    []string
	capacity int
}

func NewJobTracker(capacity int) *JobTracker {
	if capacity <= 0 {
		capacity = defaultJobCapacity
	}
	return &JobTracker{
		jobs:     make(map[string]*domain.Job),
		capacity: capacity,
	}
}

// Create registers a new pending job and returns its id.
func (t *JobTracker) Create(jobType string, metadata map[string]any) string {
	id := uuid.NewString()
	now := time.Now().UTC()

	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictLocked()
	t.jobs[id] = &domain.Job{
		ID:        id,
		Type:      jobType,
		Status:    domain.JobPending,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.order = append(t.order, id)
	return id
}

// Update mutates a tracked job. Updates to unknown ids are silently dropped
// (the caller may have raced a restart), and records in a terminal state are
// frozen.
func (t *JobTracker) Update(id string, status domain.JobStatus, message string, metadataPatch map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}

	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	if message != "" {
		job.Message = message
	}
	for k, v := range metadataPatch {
		job.Metadata[k] = v
	}
}

// Get returns a copy of the job record.
func (t *JobTracker) Get(id string) (*domain.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	out := *job
	out.Metadata = make(map[string]any, len(job.Metadata))
	for k, v := range job.Metadata {
		out.Metadata[k] = v
	}
	return &out, true
}

// CountPending counts records that have not reached a terminal state.
func (t *JobTracker) CountPending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := 0
	for _, job := range t.jobs {
		if !job.Status.Terminal() {
			pending++
		}
	}
	return pending
}

func (t *JobTracker) evictLocked() {
	if len(t.jobs) < t.capacity {
		return
	}
	kept := t.order[:0]
	for _, id := range t.order {
		job, ok := t.jobs[id]
		if !ok {
			continue
		}
		if len(t.jobs) >= t.capacity && job.Status.Terminal() {
			delete(t.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}
