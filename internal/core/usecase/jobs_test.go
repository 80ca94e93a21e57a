package usecase

import (
	"sync"
	"testing"

	"github.com/ametelin/docqa/internal/core/domain"
)

func TestJobTrackerLifecycle(t *testing.T) {
	tracker := NewJobTracker(0)

	id := tracker.Create("build", map[string]any{"files": 2})
	job, ok := tracker.Get(id)
	if !ok {
		t.Fatalf("expected job %s to exist", id)
	}
	if job.Status != domain.JobPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	tracker.Update(id, domain.JobRunning, "chunking documents", nil)
	tracker.Update(id, domain.JobCompleted, "done", map[string]any{"chunks": 10})

	job, _ = tracker.Get(id)
	if job.Status != domain.JobCompleted {
		t.Fatalf("expected completed status, got %s", job.Status)
	}
	if job.Message != "done" {
		t.Fatalf("expected final message, got %q", job.Message)
	}
	if job.Metadata["files"] != 2 || job.Metadata["chunks"] != 10 {
		t.Fatalf("expected merged metadata, got %v", job.Metadata)
	}
}

func TestJobTrackerTerminalStatusIsFrozen(t *testing.T) {
	tracker := NewJobTracker(0)
	id := tracker.Create("build", nil)

	tracker.Update(id, domain.JobFailed, "boom", nil)
	tracker.Update(id, domain.JobRunning, "should not apply", nil)

	job, _ := tracker.Get(id)
	if job.Status != domain.JobFailed {
		t.Fatalf("terminal status must not change, got %s", job.Status)
	}
	if job.Message != "boom" {
		t.Fatalf("terminal message must not change, got %q", job.Message)
	}
}

func TestJobTrackerUpdateUnknownIDIsNoOp(t *testing.T) {
	tracker := NewJobTracker(0)
	tracker.Update("missing", domain.JobRunning, "", nil)

	if _, ok := tracker.Get("missing"); ok {
		t.Fatalf("update must not create records")
	}
}

func TestJobTrackerCountPending(t *testing.T) {
	tracker := NewJobTracker(0)

	first := tracker.Create("build", nil)
	second := tracker.Create("build", nil)
	tracker.Create("build", nil)

	tracker.Update(first, domain.JobCompleted, "", nil)
	tracker.Update(second, domain.JobFailed, "", nil)

	if got := tracker.CountPending(); got != 1 {
		t.Fatalf("expected 1 pending job, got %d", got)
	}
}

func TestJobTrackerEvictsTerminalRecordsAtCapacity(t *testing.T) {
	tracker := NewJobTracker(2)

	first := tracker.Create("build", nil)
	tracker.Update(first, domain.JobCompleted, "", nil)
	second := tracker.Create("build", nil)

	// Third create exceeds capacity; the completed record is evicted, the
	// pending one survives.
	third := tracker.Create("build", nil)

	if _, ok := tracker.Get(first); ok {
		t.Fatalf("expected terminal job %s to be evicted", first)
	}
	for _, id := range []string{second, third} {
		if _, ok := tracker.Get(id); !ok {
			t.Fatalf("expected job %s to survive eviction", id)
		}
	}
}

func TestJobTrackerConcurrentAccess(t *testing.T) {
	tracker := NewJobTracker(0)
	id := tracker.Create("build", nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(id, domain.JobRunning, "progress", map[string]any{"step": 1})
			tracker.Get(id)
			tracker.CountPending()
		}()
	}
	wg.Wait()

	job, _ := tracker.Get(id)
	if job.Status != domain.JobRunning {
		t.Fatalf("expected running status, got %s", job.Status)
	}
}
