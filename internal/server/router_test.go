package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inlet-labs/inlet/internal/api/handlers"
	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCaptureService struct {
	mock.Mock
}

func (m *MockCaptureService) Capture(ctx context.Context, input service.CaptureInput) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) Get(ctx context.Context, id string) (*service.ItemWithAssets, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ItemWithAssets), args.Error(1)
}

func (m *MockItemService) List(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListItemsOutput), args.Error(1)
}

func (m *MockItemService) Retry(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockItemService) Patch(ctx context.Context, id string, input service.PatchInput) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

type MockConsoleService struct {
	mock.Mock
}

func (m *MockConsoleService) Health(ctx context.Context) *service.HealthReport {
	args := m.Called(ctx)
	return args.Get(0).(*service.HealthReport)
}

func (m *MockConsoleService) Metrics(ctx context.Context) (*service.ConsoleMetrics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConsoleMetrics), args.Error(1)
}

func newTestRouter(captureSvc *MockCaptureService, itemSvc *MockItemService, consoleSvc *MockConsoleService, consoleToken string) http.Handler {
	return NewRouter(RouterConfig{
		ConsoleToken:   consoleToken,
		CaptureHandler: handlers.NewCaptureHandler(captureSvc),
		ItemHandler:    handlers.NewItemHandler(itemSvc),
		ConsoleHandler: handlers.NewConsoleHandler(consoleSvc, itemSvc),
	})
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(new(MockCaptureService), new(MockItemService), new(MockConsoleService), "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_CaptureRoute(t *testing.T) {
	captureSvc := new(MockCaptureService)
	item := &domain.KnowledgeItem{
		ID:         "item-1",
		UserID:     "user-1",
		SourceURL:  "https://example.com/article",
		SourceType: domain.SourceTypeWebpage,
		Status:     domain.ItemStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	captureSvc.On("Capture", mock.Anything, mock.Anything).Return(item, nil)

	router := newTestRouter(captureSvc, new(MockItemService), new(MockConsoleService), "")

	body := `{"url":"https://example.com/article","source_type":"webpage"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/capture", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	captureSvc.AssertExpectations(t)
}

func TestRouter_GetItemRoute(t *testing.T) {
	itemSvc := new(MockItemService)
	item := &domain.KnowledgeItem{
		ID:         "item-1",
		UserID:     "user-1",
		SourceURL:  "https://example.com/article",
		SourceType: domain.SourceTypeWebpage,
		Status:     domain.ItemStatusReady,
		CreatedAt:  time.Now().UTC(),
	}
	itemSvc.On("Get", mock.Anything, "item-1").Return(&service.ItemWithAssets{Item: item}, nil)

	router := newTestRouter(new(MockCaptureService), itemSvc, new(MockConsoleService), "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/item-1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "item-1", resp["data"].(map[string]interface{})["id"])
}

func TestRouter_ConsoleRequiresToken(t *testing.T) {
	consoleSvc := new(MockConsoleService)
	consoleSvc.On("Health", mock.Anything).Return(&service.HealthReport{
		Components: map[string]service.ComponentStatus{},
	})

	router := newTestRouter(new(MockCaptureService), new(MockItemService), consoleSvc, "secret")

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/internal/console/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/internal/console/health", nil)
	req.Header.Set("X-Console-Token", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ConsoleRoutes(t *testing.T) {
	itemSvc := new(MockItemService)
	consoleSvc := new(MockConsoleService)

	consoleSvc.On("Metrics", mock.Anything).Return(&service.ConsoleMetrics{
		Items: map[string]int{"pending": 1},
		Jobs:  map[string]int{"pending": 1},
	}, nil)
	itemSvc.On("List", mock.Anything, mock.Anything).Return(&service.ListItemsOutput{}, nil)

	router := newTestRouter(new(MockCaptureService), itemSvc, consoleSvc, "")

	for _, path := range []string{"/internal/console/metrics", "/internal/console/items"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	router := newTestRouter(new(MockCaptureService), new(MockItemService), new(MockConsoleService), "")

	big := bytes.Repeat([]byte("a"), 6*1024*1024)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/capture", bytes.NewReader(big))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
