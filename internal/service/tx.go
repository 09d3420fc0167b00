package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/pagination"
)

// ItemRepositoryInterface defines the repository interface for knowledge item persistence
type ItemRepositoryInterface interface {
	Create(ctx context.Context, item *domain.KnowledgeItem) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*domain.KnowledgeItem, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkError(ctx context.Context, id string, message string) error
	CompleteProcessing(ctx context.Context, item *domain.KnowledgeItem) error
	ResetForRetry(ctx context.Context, id string) error
	UpdateEditable(ctx context.Context, item *domain.KnowledgeItem) error
	ListWithCursor(ctx context.Context, status *domain.ItemStatus, cursor *pagination.Cursor, limit int) (*ItemPageResult, error)
	CountByStatus(ctx context.Context) (map[domain.ItemStatus]int, error)
}

type ItemPageResult struct {
	Items      []*domain.KnowledgeItem
	NextCursor string
	HasMore    bool
}

// ImageAssetRepositoryInterface defines the repository interface for image asset persistence
type ImageAssetRepositoryInterface interface {
	Create(ctx context.Context, a *domain.ImageAsset) error
	ListByItem(ctx context.Context, itemID string) ([]*domain.ImageAsset, error)
}

// CaptureJobRepositoryInterface defines the repository interface for capture job persistence
type CaptureJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.CaptureJob) error
	UpdateStatus(ctx context.Context, id string, status domain.CaptureJobStatus, errMsg string) error
	CountByStatus(ctx context.Context) (map[domain.CaptureJobStatus]int, error)
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Items() ItemRepositoryInterface
	Assets() ImageAssetRepositoryInterface
	Jobs() CaptureJobRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}
