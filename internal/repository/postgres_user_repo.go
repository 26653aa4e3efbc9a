package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/contentplan/internal/model"
	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLのユニーク制約違反のSQLSTATE。
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// execer は*sql.DBと*sql.Txの共通部分。単体の書き込みとトランザクション内の書き込みで同じINSERTを使う。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresUserRepo はusersテーブルに対するリポジトリ。
// メールアドレスは大文字小文字を区別せずに一意（lower(email)のユニークインデックス）。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// password_hashはGoogleのみのユーザーではNULL。
const userColumns = `id, email, name, COALESCE(password_hash, ''), created_at, updated_at`

func (r *PostgresUserRepo) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID はIDでユーザーを探す。見つからなければnil。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, `id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail は大文字小文字を区別せずにメールアドレスで探す。見つからなければnil。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.findOne(ctx, `lower(email) = lower($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create はメール+パスワードで登録したユーザーを保存する。メールが使用済みならErrDuplicate。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	return insertUser(ctx, r.db, user)
}

// CreateWithIdentity はGoogle初回サインインのユーザーとidentityを1トランザクションで保存する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	if err := insertIdentity(ctx, tx, identity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteByID はユーザーを削除する。identities・sessions・projects・content_itemsはCASCADEで消える。
// 対象がない場合はErrNotFound。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read deleted user count: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func insertUser(ctx context.Context, ex execer, user *model.User) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, nullIfEmpty(user.PasswordHash), user.CreatedAt, user.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return ErrDuplicate
	case err != nil:
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ UserRepository = (*PostgresUserRepo)(nil)
