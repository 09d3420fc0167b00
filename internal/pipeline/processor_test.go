package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/extract"
	"github.com/inlet-labs/inlet/internal/pagination"
	"github.com/inlet-labs/inlet/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockItemRepository is a mock implementation of service.ItemRepositoryInterface
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, item *domain.KnowledgeItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockItemRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, sourceURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockItemRepository) MarkProcessing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockItemRepository) MarkError(ctx context.Context, id string, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

func (m *MockItemRepository) CompleteProcessing(ctx context.Context, item *domain.KnowledgeItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) ResetForRetry(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockItemRepository) UpdateEditable(ctx context.Context, item *domain.KnowledgeItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) ListWithCursor(ctx context.Context, status *domain.ItemStatus, cursor *pagination.Cursor, limit int) (*service.ItemPageResult, error) {
	args := m.Called(ctx, status, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ItemPageResult), args.Error(1)
}

func (m *MockItemRepository) CountByStatus(ctx context.Context) (map[domain.ItemStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.ItemStatus]int), args.Error(1)
}

// MockAssetRepository is a mock implementation of service.ImageAssetRepositoryInterface
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) Create(ctx context.Context, a *domain.ImageAsset) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAssetRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.ImageAsset, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ImageAsset), args.Error(1)
}

type testTxRepos struct {
	items  service.ItemRepositoryInterface
	assets service.ImageAssetRepositoryInterface
	jobs   service.CaptureJobRepositoryInterface
}

func (t *testTxRepos) Items() service.ItemRepositoryInterface        { return t.items }
func (t *testTxRepos) Assets() service.ImageAssetRepositoryInterface { return t.assets }
func (t *testTxRepos) Jobs() service.CaptureJobRepositoryInterface   { return t.jobs }

type testTxRunner struct {
	repos  service.TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}

// MockPageFetcher is a mock implementation of PageFetcher
type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockExtractor is a mock implementation of ContentExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(pageURL string, html []byte) (*extract.Result, error) {
	args := m.Called(pageURL, html)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Result), args.Error(1)
}

// MockHarvester is a mock implementation of ImageHarvester
type MockHarvester struct {
	mock.Mock
}

func (m *MockHarvester) Harvest(ctx context.Context, itemID, pageURL string, refs []string) ([]*domain.ImageAsset, error) {
	args := m.Called(ctx, itemID, pageURL, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ImageAsset), args.Error(1)
}

// MockTranscriber is a mock implementation of AudioTranscriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, sourceURL string) (string, error) {
	args := m.Called(ctx, sourceURL)
	return args.String(0), args.Error(1)
}

func pendingItem(id string, sourceType domain.SourceType) *domain.KnowledgeItem {
	return &domain.KnowledgeItem{
		ID:         id,
		UserID:     "user-1",
		SourceURL:  "https://example.com/content",
		SourceType: sourceType,
		Status:     domain.ItemStatusPending,
		CreatedAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func newTestProcessor(items *MockItemRepository, runner *testTxRunner, fetcher *MockPageFetcher, extractor *MockExtractor, harvester *MockHarvester, transcriber *MockTranscriber) *Processor {
	return NewProcessor(items, runner, fetcher, extractor, harvester, transcriber)
}

// TestProcessor_Process tests the Process method
func TestProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("processes a webpage and commits content with assets", func(t *testing.T) {
		mockItems := new(MockItemRepository)
		mockAssets := new(MockAssetRepository)
		runner := &testTxRunner{repos: &testTxRepos{items: mockItems, assets: mockAssets}}
		mockFetcher := new(MockPageFetcher)
		mockExtractor := new(MockExtractor)
		mockHarvester := new(MockHarvester)

		item := pendingItem("item-1", domain.SourceTypeWebpage)
		published := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		html := []byte("<html><body><article>hello</article></body></html>")

		mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(nil)
		mockFetcher.On("FetchPage", mock.Anything, "https://example.com/content").Return(html, nil)
		mockExtractor.On("Extract", "https://example.com/content", html).Return(&extract.Result{
			Title:       "Hello World",
			Author:      "Jane Writer",
			PublishedAt: &published,
			TextContent: "hello",
			HTMLContent: "<article>hello</article>",
			ImageRefs:   []string{"/img/a.jpg"},
		}, nil)
		mockHarvester.On("Harvest", mock.Anything, "item-1", "https://example.com/content", []string{"/img/a.jpg"}).
			Return([]*domain.ImageAsset{{ID: "asset-1", ItemID: "item-1", StorageKey: "images/item-1/x.jpg"}}, nil)
		mockItems.On("CompleteProcessing", mock.Anything, mock.MatchedBy(func(updated *domain.KnowledgeItem) bool {
			return updated.Title == "Hello World" &&
				updated.Author == "Jane Writer" &&
				updated.PublishedAt.Equal(published) &&
				updated.TextContent == "hello" &&
				updated.HTMLContent == "<article>hello</article>"
		})).Return(nil)
		mockAssets.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.ImageAsset) bool {
			return a.ID == "asset-1" && a.ItemID == "item-1"
		})).Return(nil)

		result := newTestProcessor(mockItems, runner, mockFetcher, mockExtractor, mockHarvester, new(MockTranscriber)).
			Process(ctx, Job{ItemID: "item-1", SourceType: domain.SourceTypeWebpage})

		assert.Equal(t, ResultSuccess, result.Status)
		assert.True(t, runner.called)
		mockItems.AssertExpectations(t)
		mockAssets.AssertExpectations(t)
	})

	t.Run("records the fetch error on the item", func(t *testing.T) {
		mockItems := new(MockItemRepository)
		runner := &testTxRunner{repos: &testTxRepos{items: mockItems}}
		mockFetcher := new(MockPageFetcher)

		item := pendingItem("item-1", domain.SourceTypeWebpage)
		fetchErr := errors.New("source not reachable: https://example.com/content")

		mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(nil)
		mockFetcher.On("FetchPage", mock.Anything, "https://example.com/content").Return(nil, fetchErr)
		mockItems.On("MarkError", mock.Anything, "item-1", fetchErr.Error()).Return(nil)

		result := newTestProcessor(mockItems, runner, mockFetcher, new(MockExtractor), new(MockHarvester), new(MockTranscriber)).
			Process(ctx, Job{ItemID: "item-1", SourceType: domain.SourceTypeWebpage})

		assert.Equal(t, ResultError, result.Status)
		assert.Equal(t, fetchErr.Error(), result.Message)
		assert.False(t, runner.called)
		mockItems.AssertExpectations(t)
	})

	t.Run("transcribes video and audio items", func(t *testing.T) {
		for _, sourceType := range []domain.SourceType{domain.SourceTypeVideo, domain.SourceTypeAudio} {
			mockItems := new(MockItemRepository)
			mockTranscriber := new(MockTranscriber)

			item := pendingItem("item-1", sourceType)

			mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
			mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(nil)
			mockTranscriber.On("Transcribe", mock.Anything, "https://example.com/content").Return("spoken words", nil)
			mockItems.On("CompleteProcessing", mock.Anything, mock.MatchedBy(func(updated *domain.KnowledgeItem) bool {
				return updated.TextContent == "spoken words"
			})).Return(nil)

			result := newTestProcessor(mockItems, &testTxRunner{}, new(MockPageFetcher), new(MockExtractor), new(MockHarvester), mockTranscriber).
				Process(ctx, Job{ItemID: "item-1", SourceType: sourceType})

			assert.Equal(t, ResultSuccess, result.Status)
			mockItems.AssertExpectations(t)
		}
	})

	t.Run("completes voice memos with placeholder text", func(t *testing.T) {
		mockItems := new(MockItemRepository)

		item := pendingItem("item-1", domain.SourceTypeVoiceMemo)

		mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(nil)
		mockItems.On("CompleteProcessing", mock.Anything, mock.MatchedBy(func(updated *domain.KnowledgeItem) bool {
			return updated.TextContent == "Voice memo transcription placeholder"
		})).Return(nil)

		result := newTestProcessor(mockItems, &testTxRunner{}, new(MockPageFetcher), new(MockExtractor), new(MockHarvester), new(MockTranscriber)).
			Process(ctx, Job{ItemID: "item-1", SourceType: domain.SourceTypeVoiceMemo})

		assert.Equal(t, ResultSuccess, result.Status)
		mockItems.AssertExpectations(t)
	})

	t.Run("completes notes with their captured content", func(t *testing.T) {
		mockItems := new(MockItemRepository)

		item := pendingItem("item-1", domain.SourceTypeNote)
		item.SourceURL = ""
		item.TextContent = "my note"

		mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(nil)
		mockItems.On("CompleteProcessing", mock.Anything, mock.MatchedBy(func(updated *domain.KnowledgeItem) bool {
			return updated.TextContent == "my note"
		})).Return(nil)

		result := newTestProcessor(mockItems, &testTxRunner{}, new(MockPageFetcher), new(MockExtractor), new(MockHarvester), new(MockTranscriber)).
			Process(ctx, Job{ItemID: "item-1", SourceType: domain.SourceTypeNote})

		assert.Equal(t, ResultSuccess, result.Status)
		mockItems.AssertExpectations(t)
	})

	t.Run("returns error without writes when the item is missing", func(t *testing.T) {
		mockItems := new(MockItemRepository)

		mockItems.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrItemNotFound)

		result := newTestProcessor(mockItems, &testTxRunner{}, new(MockPageFetcher), new(MockExtractor), new(MockHarvester), new(MockTranscriber)).
			Process(ctx, Job{ItemID: "missing", SourceType: domain.SourceTypeWebpage})

		assert.Equal(t, ResultError, result.Status)
		assert.Equal(t, "item not found", result.Message)
		mockItems.AssertNotCalled(t, "MarkProcessing", mock.Anything, mock.Anything)
		mockItems.AssertNotCalled(t, "MarkError", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("leaves the item alone when it is no longer pending", func(t *testing.T) {
		mockItems := new(MockItemRepository)

		item := pendingItem("item-1", domain.SourceTypeWebpage)
		item.Status = domain.ItemStatusProcessing

		mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(errors.New("no rows updated"))

		result := newTestProcessor(mockItems, &testTxRunner{}, new(MockPageFetcher), new(MockExtractor), new(MockHarvester), new(MockTranscriber)).
			Process(ctx, Job{ItemID: "item-1", SourceType: domain.SourceTypeWebpage})

		assert.Equal(t, ResultError, result.Status)
		assert.Equal(t, "item is not pending", result.Message)
		mockItems.AssertNotCalled(t, "MarkError", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("records a transcription failure on the item", func(t *testing.T) {
		mockItems := new(MockItemRepository)
		mockTranscriber := new(MockTranscriber)

		item := pendingItem("item-1", domain.SourceTypeAudio)
		transcribeErr := errors.New("transcription service returned status 503")

		mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(nil)
		mockTranscriber.On("Transcribe", mock.Anything, "https://example.com/content").Return("", transcribeErr)
		mockItems.On("MarkError", mock.Anything, "item-1", transcribeErr.Error()).Return(nil)

		result := newTestProcessor(mockItems, &testTxRunner{}, new(MockPageFetcher), new(MockExtractor), new(MockHarvester), mockTranscriber).
			Process(ctx, Job{ItemID: "item-1", SourceType: domain.SourceTypeAudio})

		assert.Equal(t, ResultError, result.Status)
		assert.Equal(t, transcribeErr.Error(), result.Message)
		mockItems.AssertExpectations(t)
	})

	t.Run("records a harvest failure on the item", func(t *testing.T) {
		mockItems := new(MockItemRepository)
		runner := &testTxRunner{repos: &testTxRepos{items: mockItems}}
		mockFetcher := new(MockPageFetcher)
		mockExtractor := new(MockExtractor)
		mockHarvester := new(MockHarvester)

		item := pendingItem("item-1", domain.SourceTypeWebpage)
		html := []byte("<html></html>")
		harvestErr := errors.New("storage operation failed")

		mockItems.On("GetByID", mock.Anything, "item-1").Return(item, nil)
		mockItems.On("MarkProcessing", mock.Anything, "item-1").Return(nil)
		mockFetcher.On("FetchPage", mock.Anything, mock.Anything).Return(html, nil)
		mockExtractor.On("Extract", mock.Anything, html).Return(&extract.Result{
			ImageRefs: []string{"/img/a.jpg"},
		}, nil)
		mockHarvester.On("Harvest", mock.Anything, "item-1", mock.Anything, mock.Anything).Return(nil, harvestErr)
		mockItems.On("MarkError", mock.Anything, "item-1", harvestErr.Error()).Return(nil)

		result := newTestProcessor(mockItems, runner, mockFetcher, mockExtractor, mockHarvester, new(MockTranscriber)).
			Process(ctx, Job{ItemID: "item-1", SourceType: domain.SourceTypeWebpage})

		assert.Equal(t, ResultError, result.Status)
		assert.False(t, runner.called)
		mockItems.AssertExpectations(t)
	})
}
