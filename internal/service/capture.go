package service

import (
	"context"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/telemetry"
)

// CaptureService handles intake of new capture requests.
type CaptureService struct {
	tx      TxRunner
	uuidGen UUIDGenerator
}

// NewCaptureService creates a new CaptureService instance
func NewCaptureService(tx TxRunner) *CaptureService {
	return &CaptureService{
		tx:      tx,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewCaptureServiceWithUUIDGen creates a new CaptureService with custom UUID generator (for testing)
func NewCaptureServiceWithUUIDGen(tx TxRunner, uuidGen UUIDGenerator) *CaptureService {
	return &CaptureService{
		tx:      tx,
		uuidGen: uuidGen,
	}
}

// CaptureInput represents one capture request
type CaptureInput struct {
	UserID     string
	SourceURL  string
	SourceType domain.SourceType
	// Content is the inline body for note captures; ignored otherwise.
	Content string
}

// Capture records a new item and enqueues its processing job in one
// transaction: an accepted item always has a job, and vice versa. A
// duplicate source URL surfaces as domain.ErrItemAlreadyExists.
func (s *CaptureService) Capture(ctx context.Context, input CaptureInput) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "CaptureService.Capture", telemetry.SpanAttributes{
		SourceType: string(input.SourceType),
		Operation:  "capture",
	})
	defer span.End()

	now := time.Now().UTC()

	userID := input.UserID
	if userID == "" {
		userID = s.uuidGen.NewString()
	}

	item := domain.NewKnowledgeItem(s.uuidGen.NewString(), userID, input.SourceURL, input.SourceType, now)
	if input.SourceType == domain.SourceTypeNote {
		item.TextContent = input.Content
	}

	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return nil, err
	}

	job := domain.NewCaptureJob(s.uuidGen.NewString(), item.ID, item.SourceType, now)

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Items().Create(ctx, item); err != nil {
			return err
		}
		return repos.Jobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}
