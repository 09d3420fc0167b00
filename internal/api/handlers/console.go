package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inlet-labs/inlet/internal/api"
	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/service"
)

type ConsoleService interface {
	Health(ctx context.Context) *service.HealthReport
	Metrics(ctx context.Context) (*service.ConsoleMetrics, error)
}

// ConsoleHandler serves the operator console endpoints.
type ConsoleHandler struct {
	console ConsoleService
	items   ItemService
}

func NewConsoleHandler(console ConsoleService, items ItemService) *ConsoleHandler {
	return &ConsoleHandler{console: console, items: items}
}

// Health reports per-component health. The endpoint itself always returns
// 200; failing components are described in the body.
func (h *ConsoleHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.console.Health(r.Context()))
}

func (h *ConsoleHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.console.Metrics(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, metrics)
}

// ItemSummary is the condensed item view used by console listings.
type ItemSummary struct {
	ID            string `json:"id"`
	SourceType    string `json:"source_type"`
	Status        string `json:"status"`
	ProcessedAt   string `json:"processed_at,omitempty"`
	CreatedAt     string `json:"created_at"`
	LastError     string `json:"last_error,omitempty"`
	Title         string `json:"title,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
	HasTranscript bool   `json:"has_transcript"`
}

func itemToSummary(item *domain.KnowledgeItem) ItemSummary {
	summary := ItemSummary{
		ID:            item.ID,
		SourceType:    string(item.SourceType),
		Status:        string(item.Status),
		CreatedAt:     item.CreatedAt.Format(time.RFC3339),
		LastError:     item.LastError,
		Title:         item.Title,
		SourceURL:     item.SourceURL,
		HasTranscript: item.TextContent != "",
	}
	if item.ProcessedAt != nil {
		summary.ProcessedAt = item.ProcessedAt.Format(time.RFC3339)
	}
	return summary
}

type ListItemsResponse struct {
	Items   []ItemSummary `json:"items"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"has_more"`
}

// ListItems returns a cursor-paginated item listing with an optional
// status filter.
func (h *ConsoleHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	output, err := h.items.List(r.Context(), service.ListItemsInput{
		Status: r.URL.Query().Get("status"),
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ListItemsResponse{
		Items:   make([]ItemSummary, 0, len(output.Items)),
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	}
	for _, item := range output.Items {
		resp.Items = append(resp.Items, itemToSummary(item))
	}

	api.Success(w, http.StatusOK, resp)
}

type RetryResponse struct {
	Status string      `json:"status"`
	Item   ItemSummary `json:"item"`
}

// RetryItem resets a terminal item and queues a fresh processing attempt.
func (h *ConsoleHandler) RetryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := h.items.Retry(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RetryResponse{
		Status: "queued",
		Item:   itemToSummary(item),
	})
}

type PatchItemRequest struct {
	Title     *string `json:"title"`
	Status    *string `json:"status"`
	LastError *string `json:"last_error"`
}

// PatchItem applies console edits to an item.
func (h *ConsoleHandler) PatchItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req PatchItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.items.Patch(r.Context(), id, service.PatchInput{
		Title:     req.Title,
		Status:    req.Status,
		LastError: req.LastError,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, itemToSummary(item))
}
