package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/contentplan/internal/model"
)

// PostgresIdentityRepo はidentitiesテーブルに対するリポジトリ。
// ユーザー削除時の後始末はON DELETE CASCADEに任せる。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID は外部IdP側のIDから紐付けを探す。見つからなければnil。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	var ident model.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, created_at
		 FROM identities
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&ident.ID, &ident.UserID, &ident.Provider, &ident.ProviderUserID, &ident.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	return &ident, nil
}

// ListProvidersByUser はユーザーに紐付いたprovider名を名前順で返す。
func (r *PostgresIdentityRepo) ListProvidersByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT provider FROM identities WHERE user_id = $1 ORDER BY provider`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	providers := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate identities: %w", err)
	}
	return providers, nil
}

// Create は既存ユーザーに外部IdPを紐付ける。同じ外部IDが既にあればErrDuplicate。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	return insertIdentity(ctx, r.db, identity)
}

func insertIdentity(ctx context.Context, ex execer, identity *model.Identity) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return ErrDuplicate
	case err != nil:
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
