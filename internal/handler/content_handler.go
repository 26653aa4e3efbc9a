package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/planner"
)

// ContentServiceInterface はコンテンツハンドラーが必要とする書き込みサービスのインターフェース。
type ContentServiceInterface interface {
	Create(ctx context.Context, userID string, in model.NewContentItem) (*model.ContentItem, error)
	UpdateStatus(ctx context.Context, userID, itemID string, status model.Status) error
	Drop(ctx context.Context, userID, itemID string, target model.Status) (bool, error)
	Delete(ctx context.Context, userID, itemID string, confirmed bool) error
}

// ViewServiceInterface は一覧・カレンダー・カンバンの射影を提供するインターフェース。
type ViewServiceInterface interface {
	Now() time.Time
	ListFiltered(ctx context.Context, userID string, f model.Filter) ([]model.ContentItem, error)
	Calendar(ctx context.Context, userID string, f model.Filter, m planner.Month) (planner.Calendar, error)
	Kanban(ctx context.Context, userID string, f model.Filter) ([]planner.Column, error)
}

// ContentHandler はコンテンツ計画のJSON APIハンドラー。
type ContentHandler struct {
	service ContentServiceInterface
	views   ViewServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface, views ViewServiceInterface) *ContentHandler {
	return &ContentHandler{
		service: service,
		views:   views,
	}
}

// createItemRequest はコンテンツ作成リクエストのボディ。
type createItemRequest struct {
	Date      string `json:"date"`
	Platform  string `json:"platform"`
	Topic     string `json:"topic"`
	Status    string `json:"status"`
	Link      string `json:"link"`
	ProjectID string `json:"project_id"`
}

// statusRequest はステータス更新・ドロップのリクエストボディ。
type statusRequest struct {
	Status string `json:"status"`
}

// itemResponse はコンテンツのAPIレスポンス。
type itemResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id,omitempty"`
	Date        string    `json:"date"`
	Platform    string    `json:"platform"`
	Topic       string    `json:"topic"`
	Status      string    `json:"status"`
	StatusLabel string    `json:"status_label"`
	Link        string    `json:"link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type calendarDayResponse struct {
	Day   int            `json:"day"`
	Date  string         `json:"date"`
	Today bool           `json:"today"`
	Items []itemResponse `json:"items"`
}

type calendarResponse struct {
	Month         string                `json:"month"`
	Title         string                `json:"title"`
	Prev          string                `json:"prev"`
	Next          string                `json:"next"`
	Weekdays      []string              `json:"weekdays"`
	LeadingBlanks int                   `json:"leading_blanks"`
	Days          []calendarDayResponse `json:"days"`
}

type kanbanColumnResponse struct {
	Status string         `json:"status"`
	Label  string         `json:"label"`
	Items  []itemResponse `json:"items"`
}

func toItemResponse(item model.ContentItem) itemResponse {
	return itemResponse{
		ID:          item.ID,
		ProjectID:   item.ProjectID,
		Date:        item.Date,
		Platform:    string(item.Platform),
		Topic:       item.Topic,
		Status:      string(item.Status),
		StatusLabel: item.Status.Label(),
		Link:        item.Link,
		CreatedAt:   item.CreatedAt,
	}
}

func toItemResponses(items []model.ContentItem) []itemResponse {
	results := make([]itemResponse, len(items))
	for i, item := range items {
		results[i] = toItemResponse(item)
	}
	return results
}

// parseStatusParam は内部値または表示ラベルのステータスを解釈する。
// 解釈できない値はそのまま返し、サービス層の検証に任せる。
func parseStatusParam(raw string) model.Status {
	if s, err := model.ParseStatus(raw); err == nil {
		return s
	}
	return model.Status(raw)
}

// parseFilterQuery はplatform/statusクエリパラメータからフィルタを組み立てる。
func parseFilterQuery(r *http.Request) (model.Filter, error) {
	q := r.URL.Query()
	return model.ParseFilter(q.Get("platform"), q.Get("status"))
}

// ListItems はフィルタ適用後のコンテンツ一覧を返す。
// GET /api/items?platform=xxx&status=yyy
func (h *ContentHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter, err := parseFilterQuery(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items, err := h.views.ListFiltered(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": toItemResponses(items),
	})
}

// CreateItem はコンテンツを作成する。
// POST /api/items
func (h *ContentHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	in := model.NewContentItem{
		ProjectID: req.ProjectID,
		Date:      req.Date,
		Platform:  model.Platform(req.Platform),
		Topic:     req.Topic,
		Link:      req.Link,
	}
	if req.Status != "" {
		in.Status = parseStatusParam(req.Status)
	}

	item, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(*item))
}

// UpdateStatus はコンテンツのステータスのみを更新する。
// PUT /api/items/{id}/status
func (h *ContentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	itemID := chi.URLParam(r, "id")
	if err := h.service.UpdateStatus(r.Context(), userID, itemID, parseStatusParam(req.Status)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DropItem はカンバンでカードを列へドロップしたときの処理を行う。
// 同じ列へのドロップでは更新せず updated=false を返す。
// POST /api/items/{id}/drop
func (h *ContentHandler) DropItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	itemID := chi.URLParam(r, "id")
	updated, err := h.service.Drop(r.Context(), userID, itemID, parseStatusParam(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

// DeleteItem はコンテンツを削除する。confirm=true がない場合は削除しない。
// DELETE /api/items/{id}?confirm=true
func (h *ContentHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "id")
	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := h.service.Delete(r.Context(), userID, itemID, confirmed); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseMonthQuery はmonthクエリパラメータを解釈する。未指定の場合は今月。
func (h *ContentHandler) parseMonthQuery(r *http.Request) (planner.Month, error) {
	return parseMonthParam(r.URL.Query().Get("month"), h.views.Now())
}

func parseMonthParam(raw string, now time.Time) (planner.Month, error) {
	if raw == "" {
		return planner.MonthOf(now), nil
	}
	m, err := planner.ParseMonth(raw)
	if err != nil {
		return planner.Month{}, model.NewInvalidMonthError(raw)
	}
	return m, nil
}

// Calendar は月のカレンダー表示を返す。
// GET /api/calendar?month=YYYY-MM&platform=xxx&status=yyy
func (h *ContentHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter, err := parseFilterQuery(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	month, err := h.parseMonthQuery(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	cal, err := h.views.Calendar(r.Context(), userID, filter, month)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	days := make([]calendarDayResponse, len(cal.Days))
	for i, d := range cal.Days {
		days[i] = calendarDayResponse{
			Day:   d.Day,
			Date:  d.DateKey,
			Today: d.Today,
			Items: toItemResponses(d.Items),
		}
	}

	writeJSON(w, http.StatusOK, calendarResponse{
		Month:         cal.Month.String(),
		Title:         cal.Month.Title(),
		Prev:          cal.Month.Prev().String(),
		Next:          cal.Month.Next().String(),
		Weekdays:      planner.WeekdayLabels[:],
		LeadingBlanks: cal.LeadingBlanks,
		Days:          days,
	})
}

// Kanban はステータス別の列を返す。
// GET /api/kanban?platform=xxx&status=yyy
func (h *ContentHandler) Kanban(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter, err := parseFilterQuery(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	columns, err := h.views.Kanban(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]kanbanColumnResponse, len(columns))
	for i, col := range columns {
		results[i] = kanbanColumnResponse{
			Status: string(col.Status),
			Label:  col.Status.Label(),
			Items:  toItemResponses(col.Items),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"columns": results,
	})
}
