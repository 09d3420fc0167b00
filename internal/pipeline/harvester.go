package pipeline

import (
	"context"
	"log"
	"path"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/extract"
)

const defaultImageMimeType = "image/jpeg"

// ImageFetcher downloads image bytes.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// ObjectStore writes harvested bytes to durable storage.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// Harvester downloads a page's image references and uploads them to object
// storage. A failed download skips that image; a failed upload aborts the
// harvest, since an asset record must never point at missing bytes.
type Harvester struct {
	fetcher ImageFetcher
	store   ObjectStore
	uuidGen func() string
}

func NewHarvester(fetcher ImageFetcher, store ObjectStore, uuidGen func() string) *Harvester {
	return &Harvester{
		fetcher: fetcher,
		store:   store,
		uuidGen: uuidGen,
	}
}

// Harvest processes refs in order and returns the asset records for every
// image that was durably stored. The records are not persisted here; the
// caller commits them together with the item's content.
func (h *Harvester) Harvest(ctx context.Context, itemID, pageURL string, refs []string) ([]*domain.ImageAsset, error) {
	var assets []*domain.ImageAsset

	for _, ref := range refs {
		imgURL := extract.ResolveImageURL(pageURL, ref)

		body, contentType, err := h.fetcher.FetchImage(ctx, imgURL)
		if err != nil {
			log.Printf("skipping image %s for item %s: %v", imgURL, itemID, err)
			continue
		}

		ext := path.Ext(ref)
		if ext == "" {
			ext = ".jpg"
		}
		if contentType == "" {
			contentType = defaultImageMimeType
		}

		key := "images/" + itemID + "/" + h.uuidGen() + ext

		if err := h.store.PutObject(ctx, key, body, contentType); err != nil {
			return nil, err
		}

		assets = append(assets, &domain.ImageAsset{
			ID:          h.uuidGen(),
			ItemID:      itemID,
			StorageKey:  key,
			OriginalURL: ref,
			MimeType:    contentType,
			CreatedAt:   time.Now().UTC(),
		})
	}

	return assets, nil
}
