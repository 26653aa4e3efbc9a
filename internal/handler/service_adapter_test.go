package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewServiceAdapter_NowUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	views := NewViewServiceAdapter(&mockItemLister{}, loc)
	// UTC 22:30 は UTC+3 では翌日
	views.now = func() time.Time { return time.Date(2024, time.March, 31, 22, 30, 0, 0, time.UTC) }

	assert.Equal(t, "2024-04-01", views.Now().Format(model.DateLayout))
}

func TestViewServiceAdapter_CalendarTodayFollowsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	views := NewViewServiceAdapter(&mockItemLister{}, loc)
	views.now = func() time.Time { return time.Date(2024, time.March, 31, 22, 30, 0, 0, time.UTC) }

	cal, err := views.Calendar(context.Background(), "user-1", model.DefaultFilter(), planner.Month{Year: 2024, Month: time.April})
	require.NoError(t, err)
	assert.True(t, cal.Days[0].Today)
}

func TestViewServiceAdapter_ListFiltered(t *testing.T) {
	views := newTestViews(sampleItems(), nil)

	items, err := views.ListFiltered(context.Background(), "user-1", model.Filter{Platform: "YouTube", Status: model.FilterAll})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "i3", items[0].ID)
}

func TestViewServiceAdapter_PropagatesListError(t *testing.T) {
	views := newTestViews(nil, errors.New("boom"))

	_, err := views.Kanban(context.Background(), "user-1", model.DefaultFilter())
	assert.Error(t, err)
	_, err = views.Calendar(context.Background(), "user-1", model.DefaultFilter(), planner.MonthOf(fixedNow))
	assert.Error(t, err)
}

func TestNewViewServiceAdapter_NilLocationIsUTC(t *testing.T) {
	views := NewViewServiceAdapter(&mockItemLister{}, nil)
	assert.Equal(t, time.UTC, views.Now().Location())
}
