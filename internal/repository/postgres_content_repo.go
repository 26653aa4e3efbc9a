package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/contentplan/internal/model"
)

// PostgresContentRepo はPostgreSQLを使用したコンテンツリポジトリ。
type PostgresContentRepo struct {
	db *sql.DB
}

// NewPostgresContentRepo はPostgresContentRepoを生成する。
func NewPostgresContentRepo(db *sql.DB) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

// dateは文字列で扱うため to_char で YYYY-MM-DD に揃える。
const contentColumns = `id, user_id, COALESCE(project_id::text, ''), to_char(date, 'YYYY-MM-DD'),
		platform, topic, status, link, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContentItem(row rowScanner, item *model.ContentItem) error {
	return row.Scan(
		&item.ID, &item.UserID, &item.ProjectID, &item.Date,
		&item.Platform, &item.Topic, &item.Status, &item.Link, &item.CreatedAt,
	)
}

// ListByUser はユーザーの全コンテンツを date 降順で返す。
func (r *PostgresContentRepo) ListByUser(ctx context.Context, userID string) ([]model.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+`
		 FROM content_items
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	defer rows.Close()

	items := []model.ContentItem{}
	for rows.Next() {
		var item model.ContentItem
		if err := scanContentItem(rows, &item); err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content items: %w", err)
	}
	return items, nil
}

// FindByID は指定IDのコンテンツを取得する。見つからない場合はnilを返す。
func (r *PostgresContentRepo) FindByID(ctx context.Context, userID, id string) (*model.ContentItem, error) {
	item := &model.ContentItem{}
	err := scanContentItem(r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+`
		 FROM content_items
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	), item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content item: %w", err)
	}
	return item, nil
}

// Create は新規コンテンツを作成する。
func (r *PostgresContentRepo) Create(ctx context.Context, item *model.ContentItem) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO content_items (id, user_id, project_id, date, platform, topic, status, link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		item.ID, item.UserID, nullIfEmpty(item.ProjectID), item.Date,
		string(item.Platform), item.Topic, string(item.Status), item.Link,
	).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert content item: %w", err)
	}
	return nil
}

// UpdateStatus はstatus列のみを更新する。
func (r *PostgresContentRepo) UpdateStatus(ctx context.Context, userID, id string, status model.Status) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET status = $1 WHERE id = $2 AND user_id = $3`,
		string(status), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update content status: %w", err)
	}
	return requireAffected(result)
}

// Delete はコンテンツを削除する。
func (r *PostgresContentRepo) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM content_items WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete content item: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ ContentItemRepository = (*PostgresContentRepo)(nil)
