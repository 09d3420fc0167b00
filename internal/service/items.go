package service

import (
	"context"
	"strings"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/pagination"
	"github.com/inlet-labs/inlet/internal/telemetry"
)

// ItemService handles queries and operator actions on knowledge items.
type ItemService struct {
	items   ItemRepositoryInterface
	assets  ImageAssetRepositoryInterface
	tx      TxRunner
	uuidGen UUIDGenerator
}

// NewItemService creates a new ItemService instance
func NewItemService(items ItemRepositoryInterface, assets ImageAssetRepositoryInterface, tx TxRunner) *ItemService {
	return &ItemService{
		items:   items,
		assets:  assets,
		tx:      tx,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewItemServiceWithUUIDGen creates a new ItemService with custom UUID generator (for testing)
func NewItemServiceWithUUIDGen(items ItemRepositoryInterface, assets ImageAssetRepositoryInterface, tx TxRunner, uuidGen UUIDGenerator) *ItemService {
	return &ItemService{
		items:   items,
		assets:  assets,
		tx:      tx,
		uuidGen: uuidGen,
	}
}

// ItemWithAssets pairs an item with its harvested image assets.
type ItemWithAssets struct {
	Item   *domain.KnowledgeItem
	Assets []*domain.ImageAsset
}

// Get retrieves an item together with its image assets.
func (s *ItemService) Get(ctx context.Context, id string) (*ItemWithAssets, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.Get", telemetry.SpanAttributes{
		ItemID:    id,
		Operation: "get",
	})
	defer span.End()

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	assets, err := s.assets.ListByItem(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ItemWithAssets{Item: item, Assets: assets}, nil
}

type ListItemsInput struct {
	Status string
	Cursor string
	Limit  int
}

type ListItemsOutput struct {
	Items   []*domain.KnowledgeItem
	Cursor  string
	HasMore bool
}

// List returns a page of items, newest first, optionally filtered by status.
func (s *ItemService) List(ctx context.Context, input ListItemsInput) (*ListItemsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	var status *domain.ItemStatus
	if input.Status != "" {
		st := domain.ItemStatus(input.Status)
		if !domain.IsValidItemStatus(st) {
			return nil, domain.ErrInvalidItemStatus
		}
		status = &st
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.items.ListWithCursor(ctx, status, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListItemsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Retry resets a terminal item to pending and enqueues a fresh capture job
// in one transaction, so the retry behaves exactly like a first attempt.
func (s *ItemService) Retry(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.Retry", telemetry.SpanAttributes{
		ItemID:    id,
		Operation: "retry",
	})
	defer span.End()

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !item.Status.IsTerminal() {
		return nil, domain.ErrItemNotRetryable
	}

	job := domain.NewCaptureJob(s.uuidGen.NewString(), item.ID, item.SourceType, time.Now().UTC())

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Items().ResetForRetry(ctx, item.ID); err != nil {
			return err
		}
		return repos.Jobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	return s.items.GetByID(ctx, item.ID)
}

// PatchInput carries console edits; nil fields are left unchanged.
type PatchInput struct {
	Title     *string
	Status    *string
	LastError *string
}

// Patch applies console edits to an item and returns the updated record.
func (s *ItemService) Patch(ctx context.Context, id string, input PatchInput) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.Patch", telemetry.SpanAttributes{
		ItemID:    id,
		Operation: "patch",
	})
	defer span.End()

	if input.Title == nil && input.Status == nil && input.LastError == nil {
		return nil, domain.ErrNoItemUpdates
	}

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		item.Title = *input.Title
	}
	if input.Status != nil {
		st := domain.ItemStatus(*input.Status)
		if !domain.IsValidItemStatus(st) {
			return nil, domain.ErrInvalidItemStatus
		}
		item.Status = st
	}
	if input.LastError != nil {
		item.LastError = strings.TrimSpace(*input.LastError)
	}

	if err := s.items.UpdateEditable(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}
