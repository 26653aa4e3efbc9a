// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/contentplan/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey       = contextKey("user_id")
	userIDHolderContextKey = contextKey("user_id_holder")
	csrfTokenContextKey    = contextKey("csrf_token")
)

// userIDHolder は外側のミドルウェア（ログ）が内側で確定したユーザーIDを受け取るための入れ物。
type userIDHolder struct {
	userID string
}

func withUserIDHolder(ctx context.Context, h *userIDHolder) context.Context {
	return context.WithValue(ctx, userIDHolderContextKey, h)
}

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// lookupSession はCookieのセッションを検証し、有効ならユーザーIDを返す。
func lookupSession(r *http.Request, finder SessionFinder) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	session, err := finder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session", slog.String("error", err.Error()))
		return "", false
	}
	if session == nil {
		return "", false
	}
	return session.UserID, true
}

// NewSessionMiddleware はAPI向けのセッション検証ミドルウェアを返す。
// 認証済みユーザーIDをリクエストコンテキストに注入し、未認証には401を返す。
func NewSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := lookupSession(r, finder)
			if !ok {
				WriteError(w, r, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// NewPageSessionMiddleware は画面向けのセッション検証ミドルウェアを返す。
// 未認証の場合はloginPathへリダイレクトする。
func NewPageSessionMiddleware(finder SessionFinder, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := lookupSession(r, finder)
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// NewOptionalSessionMiddleware はセッションがあればユーザーIDを注入し、なければそのまま通す。
func NewOptionalSessionMiddleware(finder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := lookupSession(r, finder); ok {
				r = r.WithContext(ContextWithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if h, ok := ctx.Value(userIDHolderContextKey).(*userIDHolder); ok {
		h.userID = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
