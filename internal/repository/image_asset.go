package repository

import (
	"context"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ImageAssetRepository struct {
	db dbtx
}

func NewImageAssetRepository(pool *pgxpool.Pool) *ImageAssetRepository {
	return &ImageAssetRepository{db: pool}
}

func NewImageAssetRepositoryWithTx(tx pgx.Tx) *ImageAssetRepository {
	return &ImageAssetRepository{db: tx}
}

func (r *ImageAssetRepository) Create(ctx context.Context, a *domain.ImageAsset) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO image_assets (id, knowledge_item_id, storage_key, original_url, mime_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.ItemID, a.StorageKey, nullableString(a.OriginalURL), nullableString(a.MimeType), a.CreatedAt,
	)
	return err
}

func (r *ImageAssetRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.ImageAsset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, knowledge_item_id, storage_key, original_url, mime_type, created_at
		 FROM image_assets WHERE knowledge_item_id = $1 ORDER BY created_at ASC, id ASC`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*domain.ImageAsset
	for rows.Next() {
		var a domain.ImageAsset
		var originalURL, mimeType pgtype.Text
		if err := rows.Scan(&a.ID, &a.ItemID, &a.StorageKey, &originalURL, &mimeType, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.OriginalURL = originalURL.String
		a.MimeType = mimeType.String
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

func (r *ImageAssetRepository) DeleteByItem(ctx context.Context, itemID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM image_assets WHERE knowledge_item_id = $1`,
		itemID,
	)
	return err
}
