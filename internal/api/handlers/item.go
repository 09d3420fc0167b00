package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inlet-labs/inlet/internal/api"
	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/service"
)

type ItemService interface {
	Get(ctx context.Context, id string) (*service.ItemWithAssets, error)
	List(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error)
	Retry(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	Patch(ctx context.Context, id string, input service.PatchInput) (*domain.KnowledgeItem, error)
}

type ItemHandler struct {
	svc ItemService
}

func NewItemHandler(svc ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

type ImageAssetResponse struct {
	ID          string `json:"id"`
	StorageKey  string `json:"storage_key"`
	OriginalURL string `json:"original_url,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type ItemResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	SourceURL   string               `json:"source_url,omitempty"`
	SourceType  string               `json:"source_type"`
	Status      string               `json:"status"`
	Title       string               `json:"title,omitempty"`
	Author      string               `json:"author,omitempty"`
	PublishedAt string               `json:"published_date,omitempty"`
	TextContent string               `json:"processed_text_content,omitempty"`
	HTMLContent string               `json:"processed_html_content,omitempty"`
	LastError   string               `json:"last_error,omitempty"`
	CreatedAt   string               `json:"created_at"`
	ProcessedAt string               `json:"processed_at,omitempty"`
	Images      []ImageAssetResponse `json:"images,omitempty"`
}

func itemToResponse(item *domain.KnowledgeItem, assets []*domain.ImageAsset) *ItemResponse {
	resp := &ItemResponse{
		ID:          item.ID,
		UserID:      item.UserID,
		SourceURL:   item.SourceURL,
		SourceType:  string(item.SourceType),
		Status:      string(item.Status),
		Title:       item.Title,
		Author:      item.Author,
		TextContent: item.TextContent,
		HTMLContent: item.HTMLContent,
		LastError:   item.LastError,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
	}
	if item.PublishedAt != nil {
		resp.PublishedAt = item.PublishedAt.Format(time.RFC3339)
	}
	if item.ProcessedAt != nil {
		resp.ProcessedAt = item.ProcessedAt.Format(time.RFC3339)
	}
	for _, a := range assets {
		resp.Images = append(resp.Images, ImageAssetResponse{
			ID:          a.ID,
			StorageKey:  a.StorageKey,
			OriginalURL: a.OriginalURL,
			MimeType:    a.MimeType,
			CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

// Get returns an item with its harvested image assets.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	result, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, itemToResponse(result.Item, result.Assets))
}
