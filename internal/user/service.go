// Package user はアカウント管理（プロフィール取得と退会）のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/repository"
)

// UserStore は退会処理に必要なユーザーリポジトリの操作。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// IdentityLister は紐付け済みの外部サインイン一覧を返す。
type IdentityLister interface {
	ListProvidersByUser(ctx context.Context, userID string) ([]string, error)
}

// SessionStore はアカウント画面と退会で使うセッション操作。
type SessionStore interface {
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はアカウント管理のサービス層。
type Service struct {
	users      UserStore
	identities IdentityLister
	sessions   SessionStore
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。loggerがnilの場合はslog.Defaultを使う。
func NewService(users UserStore, identities IdentityLister, sessions SessionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, identities: identities, sessions: sessions, logger: logger}
}

// Profile はアカウント画面用に、ユーザー・紐付け済みprovider・有効セッション数をまとめて返す。
// ユーザーが存在しない場合はUserNotFoundのAPIErrorを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.Account, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	providers, err := s.identities.ListProvidersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	active, err := s.sessions.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	return &model.Account{User: user, Providers: providers, ActiveSessions: active}, nil
}

func (s *Service) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Withdraw は退会処理を実行する。confirmedがfalseの場合はストアに触れずに拒否する。
// 削除順序: sessions → user（+ CASCADE: identities, projects, content_items）
// セッションを先に消すことで、ユーザー削除の途中でも他の端末からの書き込みを止める。
func (s *Service) Withdraw(ctx context.Context, userID string, confirmed bool) error {
	if !confirmed {
		return model.NewAccountDeleteNotConfirmedError()
	}

	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("account withdrawal started", slog.String("user_id", userID))

	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		s.logFailure(userID, err)
		return model.NewAccountDeleteFailedError()
	}

	if err := s.users.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		s.logFailure(userID, err)
		return model.NewAccountDeleteFailedError()
	}

	s.logger.Info("account withdrawal completed", slog.String("user_id", userID))
	return nil
}

func (s *Service) logFailure(userID string, err error) {
	s.logger.Error("account withdrawal failed",
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
}
