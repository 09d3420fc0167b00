package domain

import (
	"fmt"
	"time"
)

// SourceType represents the kind of external content an item refers to
type SourceType string

const (
	SourceTypeWebpage   SourceType = "webpage"
	SourceTypeVideo     SourceType = "video"
	SourceTypeAudio     SourceType = "audio"
	SourceTypeVoiceMemo SourceType = "voicememo"
	SourceTypeNote      SourceType = "note"
)

// ItemStatus represents the processing status of a knowledge item
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusReady      ItemStatus = "ready_for_distillation"
	ItemStatusError      ItemStatus = "error"
)

// KnowledgeItem represents a captured reference to external content and its
// processing result
type KnowledgeItem struct {
	ID          string
	UserID      string
	SourceURL   string
	SourceType  SourceType
	Status      ItemStatus
	Title       string
	Author      string
	PublishedAt *time.Time
	TextContent string
	HTMLContent string
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewKnowledgeItem creates a new KnowledgeItem in the pending state
func NewKnowledgeItem(id, userID, sourceURL string, sourceType SourceType, createdAt time.Time) *KnowledgeItem {
	return &KnowledgeItem{
		ID:         id,
		UserID:     userID,
		SourceURL:  sourceURL,
		SourceType: sourceType,
		Status:     ItemStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(item *KnowledgeItem) error {
	if item == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if item.ID == "" {
		return fmt.Errorf("knowledge item ID is required")
	}

	if item.UserID == "" {
		return fmt.Errorf("knowledge item UserID is required")
	}

	// Notes carry their content inline; everything else points at a URL.
	if item.SourceURL == "" && item.SourceType != SourceTypeNote {
		return fmt.Errorf("knowledge item SourceURL is required")
	}

	if !IsValidSourceType(item.SourceType) {
		return fmt.Errorf("knowledge item SourceType is invalid: %s", item.SourceType)
	}

	if !IsValidItemStatus(item.Status) {
		return fmt.Errorf("knowledge item Status is invalid: %s", item.Status)
	}

	return nil
}

// ParseSourceType converts a raw string into a SourceType
func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(s)
	if !IsValidSourceType(st) {
		return "", ErrInvalidSourceType
	}
	return st, nil
}

// IsValidSourceType checks if a SourceType is one of the known kinds
func IsValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeWebpage, SourceTypeVideo, SourceTypeAudio,
		SourceTypeVoiceMemo, SourceTypeNote:
		return true
	}
	return false
}

// IsValidItemStatus checks if an ItemStatus is valid
func IsValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemStatusPending, ItemStatusProcessing, ItemStatusReady, ItemStatusError:
		return true
	}
	return false
}

// IsTerminal reports whether the status is a terminal state: no further
// automatic transition happens without an external retry.
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusReady || s == ItemStatusError
}
