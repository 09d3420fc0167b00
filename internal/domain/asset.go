package domain

import (
	"fmt"
	"time"
)

// ImageAsset represents an image harvested from a webpage and stored in
// object storage. An asset record only exists once its bytes are durably
// written under StorageKey.
type ImageAsset struct {
	ID          string
	ItemID      string
	StorageKey  string
	OriginalURL string
	MimeType    string
	CreatedAt   time.Time
}

// NewImageAsset creates a new ImageAsset instance
func NewImageAsset(id, itemID, storageKey, originalURL, mimeType string, createdAt time.Time) *ImageAsset {
	return &ImageAsset{
		ID:          id,
		ItemID:      itemID,
		StorageKey:  storageKey,
		OriginalURL: originalURL,
		MimeType:    mimeType,
		CreatedAt:   createdAt,
	}
}

// ValidateImageAsset validates an ImageAsset instance
func ValidateImageAsset(a *ImageAsset) error {
	if a == nil {
		return fmt.Errorf("image asset cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("image asset ID is required")
	}

	if a.ItemID == "" {
		return fmt.Errorf("image asset ItemID is required")
	}

	if a.StorageKey == "" {
		return fmt.Errorf("image asset StorageKey is required")
	}

	return nil
}
