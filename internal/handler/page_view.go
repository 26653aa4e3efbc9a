package handler

import (
	"net/url"
	"strings"

	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/planner"
)

// option はselect要素の選択肢。
type option struct {
	Value    string
	Label    string
	Selected bool
}

type navLink struct {
	Label  string
	URL    string
	Active bool
}

// pageBase は全画面に共通のテンプレートデータ。
type pageBase struct {
	Title     string
	CSRFToken string
	SignedIn  bool
	Error     *model.APIError
}

type itemView struct {
	ID            string
	Date          string
	Platform      string
	PlatformClass string
	Topic         string
	Link          string
	ProjectName   string
	StatusLabel   string
	StatusOptions []option
}

type calendarDayView struct {
	Day   int
	Today bool
	Items []itemView
}

type calendarView struct {
	Title    string
	PrevURL  string
	NextURL  string
	Weekdays []string
	Blanks   []struct{}
	Days     []calendarDayView
}

type columnView struct {
	Status string
	Label  string
	Items  []itemView
}

// appPage はダッシュボード画面のデータ。Viewに応じてItems/Calendar/Columnsのいずれかが埋まる。
type appPage struct {
	pageBase
	View           string
	Month          string
	PlatformFilter []option
	StatusFilter   []option
	ViewLinks      []navLink
	ResetURL       string
	PartialURL     string

	Items    []itemView
	Calendar calendarView
	Columns  []columnView

	Today              string
	NewPlatformOptions []option
	NewStatusOptions   []option
	Projects           []model.Project
}

type projectView struct {
	Name        string
	Description string
	CreatedAt   string
}

type projectsPage struct {
	pageBase
	Projects    []projectView
	Name        string
	Description string
}

type accountPage struct {
	pageBase
	Email          string
	DisplayName    string
	HasPassword    bool
	Providers      []string
	ActiveSessions int
}

type authPage struct {
	pageBase
	Register      bool
	Email         string
	Message       string
	GoogleEnabled bool
}

// appURL はダッシュボードのURLを組み立てる。既定値のパラメータは省略する。
func appURL(view model.ViewMode, f model.Filter, month planner.Month, partial bool) string {
	q := url.Values{}
	if view != model.ViewList {
		q.Set("view", string(view))
	}
	if f.Platform != model.FilterAll {
		q.Set("platform", f.Platform)
	}
	if f.Status != model.FilterAll {
		q.Set("status", f.Status)
	}
	if view == model.ViewCalendar {
		q.Set("month", month.String())
	}
	if partial {
		q.Set("partial", "1")
	}
	if len(q) == 0 {
		return "/app"
	}
	return "/app?" + q.Encode()
}

func viewLinks(current model.ViewMode, f model.Filter, month planner.Month) []navLink {
	modes := []struct {
		mode  model.ViewMode
		label string
	}{
		{model.ViewList, "Список"},
		{model.ViewCalendar, "Календарь"},
		{model.ViewKanban, "Канбан"},
	}
	links := make([]navLink, len(modes))
	for i, m := range modes {
		links[i] = navLink{
			Label:  m.label,
			URL:    appURL(m.mode, f, month, false),
			Active: m.mode == current,
		}
	}
	return links
}

func platformFilterOptions(selected string) []option {
	opts := []option{{Value: model.FilterAll, Label: "Все платформы", Selected: selected == model.FilterAll}}
	for _, p := range model.Platforms() {
		opts = append(opts, option{Value: string(p), Label: string(p), Selected: string(p) == selected})
	}
	return opts
}

func statusFilterOptions(selected string) []option {
	opts := []option{{Value: model.FilterAll, Label: "Все статусы", Selected: selected == model.FilterAll}}
	for _, s := range model.Statuses() {
		opts = append(opts, option{Value: string(s), Label: s.Label(), Selected: string(s) == selected})
	}
	return opts
}

func platformOptions() []option {
	platforms := model.Platforms()
	opts := make([]option, len(platforms))
	for i, p := range platforms {
		opts[i] = option{Value: string(p), Label: string(p)}
	}
	return opts
}

func statusOptions(selected model.Status) []option {
	statuses := model.Statuses()
	opts := make([]option, len(statuses))
	for i, s := range statuses {
		opts[i] = option{Value: string(s), Label: s.Label(), Selected: s == selected}
	}
	return opts
}

// projectNames はプロジェクトIDから名前を引く表を作る。
func projectNames(projects []model.Project) map[string]string {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return names
}

func toItemView(item model.ContentItem, names map[string]string) itemView {
	return itemView{
		ID:            item.ID,
		Date:          item.Date,
		Platform:      string(item.Platform),
		PlatformClass: strings.ToLower(string(item.Platform)),
		Topic:         item.Topic,
		Link:          item.Link,
		ProjectName:   names[item.ProjectID],
		StatusLabel:   item.Status.Label(),
		StatusOptions: statusOptions(item.Status),
	}
}

func toItemViews(items []model.ContentItem, names map[string]string) []itemView {
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = toItemView(item, names)
	}
	return views
}

func toCalendarView(cal planner.Calendar, f model.Filter, names map[string]string) calendarView {
	days := make([]calendarDayView, len(cal.Days))
	for i, d := range cal.Days {
		days[i] = calendarDayView{
			Day:   d.Day,
			Today: d.Today,
			Items: toItemViews(d.Items, names),
		}
	}
	return calendarView{
		Title:    cal.Month.Title(),
		PrevURL:  appURL(model.ViewCalendar, f, cal.Month.Prev(), false),
		NextURL:  appURL(model.ViewCalendar, f, cal.Month.Next(), false),
		Weekdays: planner.WeekdayLabels[:],
		Blanks:   cal.Blanks(),
		Days:     days,
	}
}

func toColumnViews(columns []planner.Column, names map[string]string) []columnView {
	views := make([]columnView, len(columns))
	for i, col := range columns {
		views[i] = columnView{
			Status: string(col.Status),
			Label:  col.Status.Label(),
			Items:  toItemViews(col.Items, names),
		}
	}
	return views
}

func toProjectViews(projects []model.Project) []projectView {
	views := make([]projectView, len(projects))
	for i, p := range projects {
		views[i] = projectView{
			Name:        p.Name,
			Description: p.Description,
			CreatedAt:   p.CreatedAt.Format("02.01.2006 15:04"),
		}
	}
	return views
}
