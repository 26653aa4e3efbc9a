package handler

import (
	"context"
	"time"

	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/planner"
)

// ItemLister はコンテンツ一覧の取得に必要なインターフェース。
// content.Serviceの部分集合として定義する。
type ItemLister interface {
	List(ctx context.Context, userID string) ([]model.ContentItem, error)
}

// ViewServiceAdapter はコンテンツ一覧にフィルタと表示モード別の射影を適用し、
// ViewServiceInterface に適合させるアダプタ。
type ViewServiceAdapter struct {
	items    ItemLister
	location *time.Location
	now      func() time.Time
}

// NewViewServiceAdapter はViewServiceAdapterを生成する。
// locationはカレンダーの「今日」と既定の月を決めるタイムゾーン。nilの場合はUTC。
func NewViewServiceAdapter(items ItemLister, location *time.Location) *ViewServiceAdapter {
	if location == nil {
		location = time.UTC
	}
	return &ViewServiceAdapter{
		items:    items,
		location: location,
		now:      time.Now,
	}
}

// Now は閲覧者のタイムゾーンでの現在時刻を返す。
func (a *ViewServiceAdapter) Now() time.Time {
	return a.now().In(a.location)
}

// ListFiltered はフィルタを適用したコンテンツ一覧を返す。並び順はストアの順序を保つ。
func (a *ViewServiceAdapter) ListFiltered(ctx context.Context, userID string, f model.Filter) ([]model.ContentItem, error) {
	items, err := a.items.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return planner.Filter(items, f), nil
}

// Calendar はフィルタ後のコンテンツから月のカレンダーを組み立てる。
func (a *ViewServiceAdapter) Calendar(ctx context.Context, userID string, f model.Filter, m planner.Month) (planner.Calendar, error) {
	items, err := a.ListFiltered(ctx, userID, f)
	if err != nil {
		return planner.Calendar{}, err
	}
	return planner.BuildCalendar(items, m, a.Now()), nil
}

// Kanban はフィルタ後のコンテンツからカンバンの列を組み立てる。
func (a *ViewServiceAdapter) Kanban(ctx context.Context, userID string, f model.Filter) ([]planner.Column, error) {
	items, err := a.ListFiltered(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	return planner.BuildKanban(items), nil
}

var _ ViewServiceInterface = (*ViewServiceAdapter)(nil)
