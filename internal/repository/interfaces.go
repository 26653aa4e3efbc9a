// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/contentplan/internal/model"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しない場合に返される。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate はユニーク制約違反の場合に返される。
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はパスワード登録のユーザーを作成する。
	// メールアドレスが既に使われている場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create は既存ユーザーにidentityを紐付ける。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// ContentItemRepository はユーザーごとのコンテンツコレクションの永続化インターフェース。
type ContentItemRepository interface {
	// ListByUser はユーザーの全コンテンツを date 降順（同日は作成日時降順）で返す。
	ListByUser(ctx context.Context, userID string) ([]model.ContentItem, error)

	// FindByID は指定IDのコンテンツを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.ContentItem, error)

	// Create は新規コンテンツを作成し、採番されたIDと作成日時をitemに設定する。
	Create(ctx context.Context, item *model.ContentItem) error

	// UpdateStatus はstatus列のみを更新する。対象がない場合はErrNotFoundを返す。
	UpdateStatus(ctx context.Context, userID, id string, status model.Status) error

	// Delete はコンテンツを削除する。対象がない場合はErrNotFoundを返す。
	Delete(ctx context.Context, userID, id string) error
}

// ProjectRepository はユーザーごとのプロジェクトコレクションの永続化インターフェース。
type ProjectRepository interface {
	// ListByUser はユーザーの全プロジェクトを作成日時降順で返す。
	ListByUser(ctx context.Context, userID string) ([]model.Project, error)

	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.Project, error)

	// Create は新規プロジェクトを作成し、採番されたIDと作成日時をprojectに設定する。
	Create(ctx context.Context, project *model.Project) error
}
