// Package auth はメール+パスワード認証、Google OAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/contentplan/internal/metrics"
	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// 認証方式のラベル。メトリクスとログで使う。
const (
	MethodPassword = "password"
	MethodRegister = "register"
	MethodGoogle   = "google"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はbcrypt.DefaultCost
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	metrics     metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。oauthがnilの場合はGoogleログインを無効にする。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		metrics:     collector,
		config:      config,
	}
}

// OAuthEnabled はGoogleログインが利用可能かを返す。
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// normalizeEmail はメールアドレスを検証し、前後の空白を除いて返す。
func normalizeEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

// Register はメールアドレスとパスワードで新規ユーザーを作成し、セッションを発行する。
func (s *Service) Register(ctx context.Context, email, password string) (*model.Session, error) {
	session, err := s.register(ctx, email, password)
	s.metrics.RecordAuthAttempt(MethodRegister, err == nil)
	return session, err
}

func (s *Service) register(ctx context.Context, rawEmail, password string) (*model.Session, error) {
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return nil, model.NewAuthError(model.AuthInvalidEmail)
	}
	if len([]rune(password)) < model.MinPasswordLength {
		return nil, model.NewAuthError(model.AuthWeakPassword)
	}
	if len(password) > model.MaxPasswordBytes {
		return nil, model.NewAuthError(model.AuthPasswordTooLong)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewAuthError(model.AuthEmailAlreadyInUse)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("method", MethodRegister),
	)

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// SignIn はメールアドレスとパスワードを照合し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	session, err := s.signIn(ctx, email, password)
	s.metrics.RecordAuthAttempt(MethodPassword, err == nil)
	return session, err
}

func (s *Service) signIn(ctx context.Context, rawEmail, password string) (*model.Session, error) {
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return nil, model.NewAuthError(model.AuthInvalidEmail)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthError(model.AuthUserNotFound)
	}
	// Googleのみで登録したユーザーはパスワードを持たない
	if user.PasswordHash == "" {
		return nil, model.NewAuthError(model.AuthInvalidCredential)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, model.NewAuthError(model.AuthWrongPassword)
		}
		return nil, model.NewAuthError(model.AuthInvalidCredential)
	}

	slog.Info("user signed in",
		slog.String("user_id", user.ID),
		slog.String("method", MethodPassword),
	)

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetLoginURL はOAuth認証URLを生成する。Googleログイン無効時は空文字列を返す。
func (s *Service) GetLoginURL(state string) string {
	if s.oauth == nil {
		return ""
	}
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// providerErrorはコールバックのerrorパラメータ。利用者が同意画面を閉じた場合
// （access_deniedまたはcodeなし）はpopup-closed-by-userとして扱う。
func (s *Service) HandleCallback(ctx context.Context, code, providerError string) (*model.Session, error) {
	session, err := s.handleCallback(ctx, code, providerError)
	s.metrics.RecordAuthAttempt(MethodGoogle, err == nil)
	return session, err
}

func (s *Service) handleCallback(ctx context.Context, code, providerError string) (*model.Session, error) {
	if s.oauth == nil {
		return nil, model.NewAuthError(model.AuthUnknown)
	}
	switch {
	case providerError == "access_denied", providerError == "" && code == "":
		return nil, model.NewAuthError(model.AuthPopupClosedByUser)
	case providerError != "":
		return nil, model.NewAuthError(model.AuthCode(providerError))
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string
	if identity != nil {
		userID = identity.UserID
		slog.Info("existing user logged in",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		userID, err = s.resolveOAuthUser(ctx, userInfo)
		if err != nil {
			return nil, err
		}
	}

	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// resolveOAuthUser はidentity未登録のOAuthユーザーを解決する。
// 同じメールアドレスのパスワードユーザーがいればidentityを紐付け、いなければ新規作成する。
func (s *Service) resolveOAuthUser(ctx context.Context, info *OAuthUserInfo) (string, error) {
	now := time.Now()
	identity := &model.Identity{
		ID:             uuid.New().String(),
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}

	if info.Email != "" {
		existing, err := s.userRepo.FindByEmail(ctx, info.Email)
		if err != nil {
			return "", fmt.Errorf("failed to find user by email: %w", err)
		}
		if existing != nil {
			identity.UserID = existing.ID
			if err := s.identRepo.Create(ctx, identity); err != nil {
				return "", fmt.Errorf("failed to link identity: %w", err)
			}
			slog.Info("identity linked to existing user",
				slog.String("user_id", existing.ID),
				slog.String("provider", info.Provider),
			)
			return existing.ID, nil
		}
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Email:     info.Email,
		Name:      info.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	identity.UserID = user.ID
	if err := s.userRepo.CreateWithIdentity(ctx, user, identity); err != nil {
		return "", fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("provider", info.Provider),
	)
	return user.ID, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
