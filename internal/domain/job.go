package domain

import (
	"fmt"
	"time"
)

// CaptureJobStatus represents the status of a queued capture job
type CaptureJobStatus string

const (
	CaptureJobStatusPending    CaptureJobStatus = "pending"
	CaptureJobStatusProcessing CaptureJobStatus = "processing"
	CaptureJobStatusCompleted  CaptureJobStatus = "completed"
	CaptureJobStatusFailed     CaptureJobStatus = "failed"
)

// CaptureJob represents one unit of processing work for a knowledge item.
// Jobs are delivered at most once per worker via the claiming query; there
// is no automatic redelivery, an operator retry enqueues a fresh job.
type CaptureJob struct {
	ID          string
	ItemID      string
	SourceType  SourceType
	Status      CaptureJobStatus
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	ProcessedAt *time.Time
}

// NewCaptureJob creates a pending CaptureJob for an item
func NewCaptureJob(id, itemID string, sourceType SourceType, createdAt time.Time) *CaptureJob {
	return &CaptureJob{
		ID:         id,
		ItemID:     itemID,
		SourceType: sourceType,
		Status:     CaptureJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateCaptureJob validates a CaptureJob instance
func ValidateCaptureJob(j *CaptureJob) error {
	if j == nil {
		return fmt.Errorf("capture job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("capture job ID is required")
	}

	if j.ItemID == "" {
		return fmt.Errorf("capture job ItemID is required")
	}

	if !IsValidSourceType(j.SourceType) {
		return fmt.Errorf("capture job SourceType is invalid: %s", j.SourceType)
	}

	if !isValidCaptureJobStatus(j.Status) {
		return fmt.Errorf("capture job Status is invalid: %s", j.Status)
	}

	return nil
}

func isValidCaptureJobStatus(s CaptureJobStatus) bool {
	switch s {
	case CaptureJobStatusPending, CaptureJobStatusProcessing,
		CaptureJobStatusCompleted, CaptureJobStatusFailed:
		return true
	}
	return false
}
