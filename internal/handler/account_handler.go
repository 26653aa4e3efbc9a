package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
)

// AccountServiceInterface はアカウント管理に必要なサービスのインターフェース。
type AccountServiceInterface interface {
	Profile(ctx context.Context, userID string) (*model.Account, error)
	Withdraw(ctx context.Context, userID string, confirmed bool) error
}

// AccountHandler はアカウント画面と退会のハンドラー。
type AccountHandler struct {
	service  AccountServiceInterface
	renderer *Renderer
	config   AuthHandlerConfig
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface, renderer *Renderer, config AuthHandlerConfig) *AccountHandler {
	return &AccountHandler{service: service, renderer: renderer, config: config}
}

// Page はアカウント情報と退会フォームを表示する。
// GET /account
func (h *AccountHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, nil)
}

// Delete は確認済みの場合に退会し、セッションCookieを消してトップページへ戻す。
// 確認がない場合はストアに触れずにアカウント画面を再表示する。
// POST /account/delete
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}

	confirmed := r.PostFormValue("confirm") == "yes"
	if err := h.service.Withdraw(r.Context(), userID, confirmed); err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			renderFailure(h.renderer, w, r, err)
			return
		}
		h.render(w, r, mapAPIErrorToHTTPStatus(err, apiErr), apiErr)
		return
	}

	setSessionCookie(w, h.config, "", -1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AccountHandler) render(w http.ResponseWriter, r *http.Request, statusCode int, banner *model.APIError) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}

	account, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		renderFailure(h.renderer, w, r, err)
		return
	}

	page := accountPage{
		pageBase:       newPageBase(r, "Аккаунт"),
		Email:          account.User.Email,
		DisplayName:    account.User.DisplayName(),
		HasPassword:    account.User.HasPassword(),
		Providers:      account.Providers,
		ActiveSessions: account.ActiveSessions,
	}
	page.Error = banner
	h.renderer.Render(w, statusCode, pageAccount, page)
}
