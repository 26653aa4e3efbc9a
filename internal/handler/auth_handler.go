package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	OAuthEnabled() bool
	Register(ctx context.Context, email, password string) (*model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code, providerError string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証画面と認証フローのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	renderer *Renderer
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, renderer *Renderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		renderer: renderer,
		config:   config,
	}
}

// Page はログイン・登録画面を表示する。ログイン済みの場合はダッシュボードへ移動する。
// GET /auth?mode=register
func (h *AuthHandler) Page(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err == nil {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	h.renderAuth(w, r, http.StatusOK, r.URL.Query().Get("mode") == "register", "", "")
}

// SignIn はメール+パスワードでログインする。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	session, err := h.service.SignIn(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		h.renderAuthError(w, r, false, email, err)
		return
	}
	h.startSession(w, r, session)
}

// Register はメール+パスワードでアカウントを作成し、そのままログインする。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	session, err := h.service.Register(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		h.renderAuthError(w, r, true, email, err)
		return
	}
	h.startSession(w, r, session)
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.service.OAuthEnabled() {
		http.NotFound(w, r)
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.renderAuth(w, r, http.StatusInternalServerError, false, "", model.FriendlyAuthMessage(model.AuthUnknown))
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// 利用者が同意画面を閉じた場合（error=access_denied）はログイン画面にメッセージを表示する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		h.renderAuthError(w, r, false, "", model.NewAuthError(model.AuthInvalidCredential))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	session, err := h.service.HandleCallback(r.Context(), q.Get("code"), q.Get("error"))
	if err != nil {
		h.renderAuthError(w, r, false, "", err)
		return
	}
	h.startSession(w, r, session)
}

// Logout はセッションを破棄する。失敗してもCookieはクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	h.setSessionCookie(w, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Me は現在のログインユーザー情報を返す。
// GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

// startSession はセッションCookieを設定してダッシュボードへ移動する。
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, session *model.Session) {
	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	setSessionCookie(w, h.config, value, maxAge)
}

// setSessionCookie はセッションCookieを設定する。maxAgeが負の場合は削除になる。
func setSessionCookie(w http.ResponseWriter, config AuthHandlerConfig, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// renderAuthError は認証失敗をログイン画面に表示する。
// 認証エラー以外は原因をログに出し、不明エラーのメッセージを表示する。
func (h *AuthHandler) renderAuthError(w http.ResponseWriter, r *http.Request, register bool, email string, err error) {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		h.renderAuth(w, r, mapAuthCodeToHTTPStatus(authErr.AuthCode), register, email, authErr.Message)
		return
	}

	slog.Error("authentication failed", slog.String("error", err.Error()))
	h.renderAuth(w, r, http.StatusInternalServerError, register, email, model.FriendlyAuthMessage(model.AuthUnknown))
}

func (h *AuthHandler) renderAuth(w http.ResponseWriter, r *http.Request, statusCode int, register bool, email, message string) {
	title := "Вход"
	if register {
		title = "Регистрация"
	}
	h.renderer.Render(w, statusCode, pageAuth, authPage{
		pageBase:      newPageBase(r, title),
		Register:      register,
		Email:         email,
		Message:       message,
		GoogleEnabled: h.service.OAuthEnabled(),
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
