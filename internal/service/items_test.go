package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func readyItem(id string) *domain.KnowledgeItem {
	return &domain.KnowledgeItem{
		ID:         id,
		UserID:     "user-1",
		SourceURL:  "https://example.com/" + id,
		SourceType: domain.SourceTypeWebpage,
		Status:     domain.ItemStatusReady,
		CreatedAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

// TestItemService_Get tests the Get method
func TestItemService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns item with its image assets", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		mockAssetRepo := new(MockImageAssetRepository)
		service := NewItemService(mockItemRepo, mockAssetRepo, &testTxRunner{})

		item := readyItem("item-1")
		assets := []*domain.ImageAsset{
			{ID: "asset-1", ItemID: "item-1", StorageKey: "images/item-1/a.jpg"},
			{ID: "asset-2", ItemID: "item-1", StorageKey: "images/item-1/b.png"},
		}

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockAssetRepo.On("ListByItem", mock.Anything, "item-1").Return(assets, nil)

		result, err := service.Get(ctx, "item-1")

		require.NoError(t, err)
		assert.Equal(t, item, result.Item)
		assert.Len(t, result.Assets, 2)
	})

	t.Run("returns not found error for unknown item", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		mockAssetRepo := new(MockImageAssetRepository)
		service := NewItemService(mockItemRepo, mockAssetRepo, &testTxRunner{})

		mockItemRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrItemNotFound)

		result, err := service.Get(ctx, "missing")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
		mockAssetRepo.AssertNotCalled(t, "ListByItem", mock.Anything, mock.Anything)
	})
}

// TestItemService_List tests the List method
func TestItemService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists items with a status filter", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), &testTxRunner{})

		page := &ItemPageResult{
			Items:      []*domain.KnowledgeItem{readyItem("item-1")},
			NextCursor: "cursor-1",
			HasMore:    true,
		}

		mockItemRepo.On("ListWithCursor", mock.Anything, mock.MatchedBy(func(status *domain.ItemStatus) bool {
			return status != nil && *status == domain.ItemStatusError
		}), (*pagination.Cursor)(nil), 20).Return(page, nil)

		result, err := service.List(ctx, ListItemsInput{Status: "error", Limit: 20})

		require.NoError(t, err)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, "cursor-1", result.Cursor)
		assert.True(t, result.HasMore)
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), &testTxRunner{})

		result, err := service.List(ctx, ListItemsInput{Status: "done", Limit: 20})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrInvalidItemStatus)
		mockItemRepo.AssertNotCalled(t, "ListWithCursor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a malformed cursor", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), &testTxRunner{})

		result, err := service.List(ctx, ListItemsInput{Cursor: "not-base64!!", Limit: 20})

		require.Error(t, err)
		assert.Nil(t, result)

		var domainErr *domain.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})
}

// TestItemService_Retry tests the Retry method
func TestItemService_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("resets an errored item and enqueues a new job", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		mockJobRepo := new(MockCaptureJobRepository)
		runner := &testTxRunner{repos: &testTxRepos{items: mockItemRepo, jobs: mockJobRepo}}
		service := NewItemServiceWithUUIDGen(mockItemRepo, new(MockImageAssetRepository), runner, NewMockUUIDGenerator("job-id-2"))

		item := readyItem("item-1")
		item.Status = domain.ItemStatusError
		item.LastError = "fetch failed"

		reset := readyItem("item-1")
		reset.Status = domain.ItemStatusPending

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil).Once()
		mockItemRepo.On("ResetForRetry", mock.Anything, "item-1").Return(nil)
		mockJobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.CaptureJob) bool {
			return job.ID == "job-id-2" &&
				job.ItemID == "item-1" &&
				job.SourceType == domain.SourceTypeWebpage &&
				job.Status == domain.CaptureJobStatusPending
		})).Return(nil)
		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(reset, nil).Once()

		result, err := service.Retry(ctx, "item-1")

		require.NoError(t, err)
		assert.Equal(t, domain.ItemStatusPending, result.Status)
		assert.True(t, runner.called)
		mockItemRepo.AssertExpectations(t)
		mockJobRepo.AssertExpectations(t)
	})

	t.Run("allows retry of a processed item", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		mockJobRepo := new(MockCaptureJobRepository)
		runner := &testTxRunner{repos: &testTxRepos{items: mockItemRepo, jobs: mockJobRepo}}
		service := NewItemServiceWithUUIDGen(mockItemRepo, new(MockImageAssetRepository), runner, NewMockUUIDGenerator("job-id-2"))

		item := readyItem("item-1")
		reset := readyItem("item-1")
		reset.Status = domain.ItemStatusPending

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil).Once()
		mockItemRepo.On("ResetForRetry", mock.Anything, "item-1").Return(nil)
		mockJobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(reset, nil).Once()

		result, err := service.Retry(ctx, "item-1")

		require.NoError(t, err)
		assert.Equal(t, domain.ItemStatusPending, result.Status)
	})

	t.Run("rejects retry of a pending item", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		runner := &testTxRunner{repos: &testTxRepos{}}
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), runner)

		item := readyItem("item-1")
		item.Status = domain.ItemStatusPending

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)

		result, err := service.Retry(ctx, "item-1")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrItemNotRetryable)
		assert.False(t, runner.called)
	})

	t.Run("rejects retry of a processing item", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		runner := &testTxRunner{repos: &testTxRepos{}}
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), runner)

		item := readyItem("item-1")
		item.Status = domain.ItemStatusProcessing

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)

		result, err := service.Retry(ctx, "item-1")

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrItemNotRetryable)
	})
}

// TestItemService_Patch tests the Patch method
func TestItemService_Patch(t *testing.T) {
	ctx := context.Background()

	strPtr := func(s string) *string { return &s }

	t.Run("updates title and clears last error", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), &testTxRunner{})

		item := readyItem("item-1")
		item.LastError = "old error"

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItemRepo.On("UpdateEditable", mock.Anything, mock.MatchedBy(func(updated *domain.KnowledgeItem) bool {
			return updated.Title == "New Title" && updated.LastError == ""
		})).Return(nil)

		result, err := service.Patch(ctx, "item-1", PatchInput{
			Title:     strPtr("New Title"),
			LastError: strPtr("  "),
		})

		require.NoError(t, err)
		assert.Equal(t, "New Title", result.Title)
		assert.Empty(t, result.LastError)
		mockItemRepo.AssertExpectations(t)
	})

	t.Run("updates status", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), &testTxRunner{})

		item := readyItem("item-1")

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItemRepo.On("UpdateEditable", mock.Anything, mock.MatchedBy(func(updated *domain.KnowledgeItem) bool {
			return updated.Status == domain.ItemStatusError
		})).Return(nil)

		result, err := service.Patch(ctx, "item-1", PatchInput{Status: strPtr("error")})

		require.NoError(t, err)
		assert.Equal(t, domain.ItemStatusError, result.Status)
	})

	t.Run("rejects an empty patch", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), &testTxRunner{})

		result, err := service.Patch(ctx, "item-1", PatchInput{})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrNoItemUpdates)
		mockItemRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("rejects an invalid status value", func(t *testing.T) {
		mockItemRepo := new(MockItemRepository)
		service := NewItemService(mockItemRepo, new(MockImageAssetRepository), &testTxRunner{})

		mockItemRepo.On("GetByID", mock.Anything, "item-1").Return(readyItem("item-1"), nil)

		result, err := service.Patch(ctx, "item-1", PatchInput{Status: strPtr("archived")})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrInvalidItemStatus)
		mockItemRepo.AssertNotCalled(t, "UpdateEditable", mock.Anything, mock.Anything)
	})
}
