package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/pipeline"
)

const (
	// DefaultBatchSize bounds how many jobs one poll claims.
	DefaultBatchSize = 10

	staleErrorMessage = "processing timed out"
)

// CaptureJobRepository defines the interface for capture job persistence
type CaptureJobRepository interface {
	// ClaimPending retrieves and claims pending capture jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.CaptureJob, error)

	// UpdateStatus updates the status of a capture job
	UpdateStatus(ctx context.Context, id string, status domain.CaptureJobStatus, errMsg string) error

	// FailStale fails processing jobs that started before the cutoff
	FailStale(ctx context.Context, cutoff time.Time) ([]*domain.CaptureJob, error)
}

// ItemMarker records an error on a stuck item.
type ItemMarker interface {
	MarkError(ctx context.Context, id string, message string) error
}

// CaptureProcessor runs one capture job through the pipeline.
type CaptureProcessor interface {
	Process(ctx context.Context, job pipeline.Job) pipeline.Result
}

// CaptureWorker claims and processes capture jobs, and reaps runs that
// died mid-processing so their items do not sit in processing forever.
type CaptureWorker struct {
	repo       CaptureJobRepository
	items      ItemMarker
	processor  CaptureProcessor
	staleAfter time.Duration
	batchSize  int
}

// NewCaptureWorker creates a new CaptureWorker instance
func NewCaptureWorker(repo CaptureJobRepository, items ItemMarker, processor CaptureProcessor, staleAfter time.Duration) *CaptureWorker {
	return &CaptureWorker{
		repo:       repo,
		items:      items,
		processor:  processor,
		staleAfter: staleAfter,
		batchSize:  DefaultBatchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *CaptureWorker) ProcessJobs(ctx context.Context) error {
	w.reapStale(ctx)

	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("processing %d capture jobs", len(jobs))

	for _, job := range jobs {
		w.processJob(ctx, job)
	}

	return nil
}

func (w *CaptureWorker) processJob(ctx context.Context, job *domain.CaptureJob) {
	result := w.processor.Process(ctx, pipeline.Job{
		ItemID:     job.ItemID,
		SourceType: job.SourceType,
	})

	status := domain.CaptureJobStatusCompleted
	errMsg := ""
	if result.Status != pipeline.ResultSuccess {
		status = domain.CaptureJobStatusFailed
		errMsg = result.Message
		log.Printf("job %s for item %s failed: %s", job.ID, job.ItemID, result.Message)
	} else {
		log.Printf("job %s for item %s completed", job.ID, job.ItemID)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		log.Printf("failed to update job %s status: %v", job.ID, err)
	}
}

// reapStale fails jobs whose worker died mid-run and errors their items.
// Reap failures are logged, not returned: a broken reaper must not stop
// fresh jobs from being processed.
func (w *CaptureWorker) reapStale(ctx context.Context) {
	if w.staleAfter <= 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-w.staleAfter)
	stale, err := w.repo.FailStale(ctx, cutoff)
	if err != nil {
		log.Printf("failed to reap stale jobs: %v", err)
		return
	}

	for _, job := range stale {
		log.Printf("reaped stale job %s for item %s", job.ID, job.ItemID)
		if err := w.items.MarkError(ctx, job.ItemID, staleErrorMessage); err != nil {
			log.Printf("failed to mark stale item %s as errored: %v", job.ItemID, err)
		}
	}
}
