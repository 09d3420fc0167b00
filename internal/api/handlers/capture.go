package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/inlet-labs/inlet/internal/api"
	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/service"
)

type CaptureService interface {
	Capture(ctx context.Context, input service.CaptureInput) (*domain.KnowledgeItem, error)
}

type CaptureHandler struct {
	svc CaptureService
}

func NewCaptureHandler(svc CaptureService) *CaptureHandler {
	return &CaptureHandler{svc: svc}
}

type CaptureRequest struct {
	URL        string `json:"url"`
	SourceType string `json:"source_type"`
	Content    string `json:"content"`
	UserID     string `json:"user_id"`
}

type CaptureResponse struct {
	ItemID     string `json:"item_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	SourceType string `json:"source_type"`
	SourceURL  string `json:"source_url,omitempty"`
}

// Create accepts a capture request and returns 202 immediately; processing
// happens asynchronously.
func (h *CaptureHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SourceType == "" {
		api.Error(w, http.StatusBadRequest, "source_type is required")
		return
	}

	sourceType, err := domain.ParseSourceType(req.SourceType)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid source_type")
		return
	}

	if req.URL == "" && sourceType != domain.SourceTypeNote {
		api.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	item, err := h.svc.Capture(r.Context(), service.CaptureInput{
		UserID:     req.UserID,
		SourceURL:  req.URL,
		SourceType: sourceType,
		Content:    req.Content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, CaptureResponse{
		ItemID:     item.ID,
		Status:     string(item.Status),
		Message:    "capture request accepted and queued for processing",
		SourceType: string(item.SourceType),
		SourceURL:  item.SourceURL,
	})
}
