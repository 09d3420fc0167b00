package repository

import (
	"context"
	"errors"
	"time"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/pagination"
	"github.com/inlet-labs/inlet/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const itemColumns = `id, user_id, source_url, source_type, status, title, author, published_date,
	 processed_text_content, processed_html_content, last_error, created_at, processed_at`

type ItemRepository struct {
	db dbtx
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: pool}
}

func NewItemRepositoryWithTx(tx pgx.Tx) *ItemRepository {
	return &ItemRepository{db: tx}
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.KnowledgeItem) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_items (id, user_id, source_url, source_type, status, title, author, published_date,
		  processed_text_content, processed_html_content, last_error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.ID, item.UserID, nullableString(item.SourceURL), item.SourceType, item.Status,
		item.Title, item.Author, item.PublishedAt,
		item.TextContent, item.HTMLContent, nullableString(item.LastError),
		item.CreatedAt, item.ProcessedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrItemAlreadyExists
	}
	return err
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items WHERE id = $1`,
		id,
	)
	return scanItemRow(row)
}

func (r *ItemRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*domain.KnowledgeItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items WHERE source_url = $1`,
		sourceURL,
	)
	return scanItemRow(row)
}

// MarkProcessing moves a pending item into processing. The transition is
// guarded so a concurrent worker or reaper cannot resurrect a terminal item.
func (r *ItemRepository) MarkProcessing(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET status = $1, last_error = NULL, processed_at = $2
		 WHERE id = $3 AND status = $4`,
		domain.ItemStatusProcessing, time.Now().UTC(), id, domain.ItemStatusPending,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// MarkError transitions a processing item into the error state. Only
// processing items are eligible; terminal states stay untouched.
func (r *ItemRepository) MarkError(ctx context.Context, id string, message string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET status = $1, last_error = $2, processed_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.ItemStatusError, message, time.Now().UTC(), id, domain.ItemStatusProcessing,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// CompleteProcessing records the extracted content and moves the item into
// its ready state in a single statement.
func (r *ItemRepository) CompleteProcessing(ctx context.Context, item *domain.KnowledgeItem) error {
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items
		 SET status = $1, title = $2, author = $3, published_date = $4,
		     processed_text_content = $5, processed_html_content = $6,
		     last_error = NULL, processed_at = $7
		 WHERE id = $8`,
		domain.ItemStatusReady, item.Title, item.Author, item.PublishedAt,
		item.TextContent, item.HTMLContent, now, item.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	item.Status = domain.ItemStatusReady
	item.ProcessedAt = &now
	return nil
}

// ResetForRetry returns a terminal item to pending and clears the previous
// run's output so reprocessing starts from a clean slate.
func (r *ItemRepository) ResetForRetry(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items
		 SET status = $1, last_error = NULL, processed_at = NULL,
		     processed_text_content = '', processed_html_content = ''
		 WHERE id = $2 AND status IN ($3, $4)`,
		domain.ItemStatusPending, id, domain.ItemStatusError, domain.ItemStatusReady,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// UpdateEditable persists the console-editable fields: title, status, and
// last_error. Content and pipeline timestamps are never touched here.
func (r *ItemRepository) UpdateEditable(ctx context.Context, item *domain.KnowledgeItem) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET title = $1, status = $2, last_error = $3
		 WHERE id = $4`,
		item.Title, item.Status, nullableString(item.LastError), item.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) ListWithCursor(ctx context.Context, status *domain.ItemStatus, cursor *pagination.Cursor, limit int) (*service.ItemPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var statusParam *string
	if status != nil {
		s := string(*status)
		statusParam = &s
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+itemColumns+`
			 FROM knowledge_items
			 WHERE ($1::text IS NULL OR status = $1) AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			statusParam, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+itemColumns+`
			 FROM knowledge_items
			 WHERE ($1::text IS NULL OR status = $1)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			statusParam, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanItemRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.ItemPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *ItemRepository) CountByStatus(ctx context.Context) (map[domain.ItemStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM knowledge_items GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ItemStatus]int)
	for rows.Next() {
		var status domain.ItemStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanItemRow(row pgx.Row) (*domain.KnowledgeItem, error) {
	var item domain.KnowledgeItem
	var sourceURL, title, author, textContent, htmlContent, lastError pgtype.Text
	err := row.Scan(&item.ID, &item.UserID, &sourceURL, &item.SourceType, &item.Status,
		&title, &author, &item.PublishedAt,
		&textContent, &htmlContent, &lastError,
		&item.CreatedAt, &item.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	item.SourceURL = sourceURL.String
	item.Title = title.String
	item.Author = author.String
	item.TextContent = textContent.String
	item.HTMLContent = htmlContent.String
	item.LastError = lastError.String
	return &item, nil
}

func scanItemRows(rows pgx.Rows) ([]*domain.KnowledgeItem, error) {
	var results []*domain.KnowledgeItem
	for rows.Next() {
		var item domain.KnowledgeItem
		var sourceURL, title, author, textContent, htmlContent, lastError pgtype.Text
		if err := rows.Scan(&item.ID, &item.UserID, &sourceURL, &item.SourceType, &item.Status,
			&title, &author, &item.PublishedAt,
			&textContent, &htmlContent, &lastError,
			&item.CreatedAt, &item.ProcessedAt); err != nil {
			return nil, err
		}
		item.SourceURL = sourceURL.String
		item.Title = title.String
		item.Author = author.String
		item.TextContent = textContent.String
		item.HTMLContent = htmlContent.String
		item.LastError = lastError.String
		results = append(results, &item)
	}
	return results, rows.Err()
}
