package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/planner"
)

// PageHandler はサーバー描画の画面ハンドラー。
type PageHandler struct {
	renderer *Renderer
	views    ViewServiceInterface
	projects ProjectServiceInterface
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer *Renderer, views ViewServiceInterface, projects ProjectServiceInterface) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		views:    views,
		projects: projects,
	}
}

// newPageBase はCSRFトークンとログイン状態を埋めた共通データを返す。
func newPageBase(r *http.Request, title string) pageBase {
	_, err := middleware.UserIDFromContext(r.Context())
	return pageBase{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		SignedIn:  err == nil,
	}
}

// renderFailure はデータ取得の失敗をエラー画面として描画する。
func (h *PageHandler) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	renderFailure(h.renderer, w, r, err)
}

func renderFailure(renderer *Renderer, w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("failed to load page data",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	base := newPageBase(r, "Ошибка")
	base.Error = model.NewInternalError()
	renderer.Render(w, http.StatusInternalServerError, pageError, base)
}

// Landing はトップページを表示する。ログイン済みの場合はダッシュボードへ移動する。
// GET /
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err == nil {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, http.StatusOK, pageLanding, newPageBase(r, "Контент-план"))
}

// App はダッシュボード（リスト・カレンダー・カンバン）を表示する。
// partial=1 の場合はライブ更新用に表示部分だけを返す。
// GET /app?view=list|calendar|kanban&platform=xxx&status=yyy&month=YYYY-MM
func (h *PageHandler) App(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	view := model.ParseViewMode(q.Get("view"))
	now := h.views.Now()
	statusCode := http.StatusOK
	page := appPage{pageBase: newPageBase(r, "Посты")}

	filter, err := model.ParseFilter(q.Get("platform"), q.Get("status"))
	if err != nil {
		filter = model.DefaultFilter()
		page.Error = asAPIError(err)
		statusCode = http.StatusBadRequest
	}
	month, err := parseMonthParam(q.Get("month"), now)
	if err != nil {
		month = planner.MonthOf(now)
		page.Error = asAPIError(err)
		statusCode = http.StatusBadRequest
	}

	projects, err := h.projects.ListProjects(r.Context(), userID)
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	names := projectNames(projects)

	switch view {
	case model.ViewCalendar:
		cal, err := h.views.Calendar(r.Context(), userID, filter, month)
		if err != nil {
			h.renderFailure(w, r, err)
			return
		}
		page.Calendar = toCalendarView(cal, filter, names)
	case model.ViewKanban:
		columns, err := h.views.Kanban(r.Context(), userID, filter)
		if err != nil {
			h.renderFailure(w, r, err)
			return
		}
		page.Columns = toColumnViews(columns, names)
	default:
		items, err := h.views.ListFiltered(r.Context(), userID, filter)
		if err != nil {
			h.renderFailure(w, r, err)
			return
		}
		page.Items = toItemViews(items, names)
	}

	page.View = string(view)
	page.Month = month.String()
	page.PlatformFilter = platformFilterOptions(filter.Platform)
	page.StatusFilter = statusFilterOptions(filter.Status)
	page.ViewLinks = viewLinks(view, filter, month)
	page.ResetURL = appURL(view, model.DefaultFilter(), month, false)
	page.PartialURL = appURL(view, filter, month, true)
	page.Today = now.Format(model.DateLayout)
	page.NewPlatformOptions = platformOptions()
	page.NewStatusOptions = statusOptions(model.StatusIdea)
	page.Projects = projects

	if q.Get("partial") == "1" {
		h.renderer.RenderFragment(w, statusCode, pageApp, "view", page)
		return
	}
	h.renderer.Render(w, statusCode, pageApp, page)
}

// Projects はプロジェクト一覧と作成フォームを表示する。
// GET /projects
func (h *PageHandler) Projects(w http.ResponseWriter, r *http.Request) {
	h.renderProjects(w, r, http.StatusOK, projectsPage{})
}

// CreateProject は作成フォームの送信を処理する。
// 入力エラーは値を保持したままフォームに表示する。
// POST /projects
func (h *PageHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}

	form := projectsPage{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}

	if _, err := h.projects.CreateProject(r.Context(), userID, form.Name, form.Description); err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			h.renderFailure(w, r, err)
			return
		}
		form.Error = apiErr
		h.renderProjects(w, r, mapAPIErrorToHTTPStatus(err, apiErr), form)
		return
	}

	http.Redirect(w, r, "/projects", http.StatusSeeOther)
}

func (h *PageHandler) renderProjects(w http.ResponseWriter, r *http.Request, statusCode int, page projectsPage) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}

	projects, err := h.projects.ListProjects(r.Context(), userID)
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}

	formErr := page.Error
	page.pageBase = newPageBase(r, "Проекты")
	page.Error = formErr
	page.Projects = toProjectViews(projects)

	if r.URL.Query().Get("partial") == "1" {
		h.renderer.RenderFragment(w, statusCode, pageProjects, "project-list", page)
		return
	}
	h.renderer.Render(w, statusCode, pageProjects, page)
}

// asAPIError はエラーからAPIErrorを取り出す。APIErrorでない場合は内部エラーとして扱う。
func asAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewInternalError()
}
