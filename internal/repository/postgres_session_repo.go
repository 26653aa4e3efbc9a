package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/contentplan/internal/model"
)

const sessionColumns = `id, user_id, expires_at, created_at`

// PostgresSessionRepo はsessionsテーブルに対するリポジトリ。
// 期限切れの行は読み出し時に除外し、物理削除はworkerのクリーンアップに任せる。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

func scanSession(row rowScanner, s *model.Session) error {
	return row.Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
}

// Create はサインイン直後のセッションを保存する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.ExpiresAt, session.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は有効なセッションを返す。存在しないか期限切れならnil。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND expires_at > now()`,
		id,
	), &session)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

// CountActiveByUser はユーザーの有効なセッション数（サインイン中の端末数）を返す。
func (r *PostgresSessionRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sessions WHERE user_id = $1 AND expires_at > now()`,
		userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// DeleteByID はサインアウト時に1件削除する。対象がなくてもエラーにしない。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全端末のセッションを無効にする。
func (r *PostgresSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete sessions by user: %w", err)
	}
	return nil
}

var _ SessionRepository = (*PostgresSessionRepo)(nil)
