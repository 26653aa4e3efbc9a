package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/contentplan/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// ListByUser はユーザーの全プロジェクトを作成日時降順で返す。
func (r *PostgresProjectRepo) ListByUser(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, created_at
		 FROM projects
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, userID, id string) (*model.Project, error) {
	p := &model.Project{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, created_at
		 FROM projects
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return p, nil
}

// Create は新規プロジェクトを作成する。created_atはDB側で採番する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO projects (id, user_id, name, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		project.ID, project.UserID, project.Name, project.Description,
	).Scan(&project.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
