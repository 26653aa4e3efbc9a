// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// DateLayout はコンテンツの予定日の文字列表現（時刻なし）。
const DateLayout = "2006-01-02"

// Platform は投稿先プラットフォームを表す閉じた列挙型。
type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformTelegram  Platform = "Telegram"
	PlatformYouTube   Platform = "YouTube"
	PlatformVK        Platform = "VK"
	PlatformTikTok    Platform = "TikTok"
)

// Platforms は表示順のプラットフォーム一覧を返す。
func Platforms() []Platform {
	return []Platform{PlatformInstagram, PlatformTelegram, PlatformYouTube, PlatformVK, PlatformTikTok}
}

// Valid は定義済みのプラットフォームかどうかを返す。
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformTelegram, PlatformYouTube, PlatformVK, PlatformTikTok:
		return true
	}
	return false
}

// ParsePlatform は文字列をPlatformに変換する。
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// Status はコンテンツの進行状況を表す。順序はIdea→InProgress→Ready→Published。
// 遷移に順序制約はなく、任意のステータスから任意のステータスへ移動できる。
type Status string

const (
	StatusIdea       Status = "idea"
	StatusInProgress Status = "in_progress"
	StatusReady      Status = "ready"
	StatusPublished  Status = "published"
)

// Statuses はカンバンの列順のステータス一覧を返す。
func Statuses() []Status {
	return []Status{StatusIdea, StatusInProgress, StatusReady, StatusPublished}
}

// Valid は定義済みのステータスかどうかを返す。
func (s Status) Valid() bool {
	switch s {
	case StatusIdea, StatusInProgress, StatusReady, StatusPublished:
		return true
	}
	return false
}

// Label は画面表示用のラベルを返す。
func (s Status) Label() string {
	switch s {
	case StatusIdea:
		return "Идея"
	case StatusInProgress:
		return "В работе"
	case StatusReady:
		return "Готово"
	case StatusPublished:
		return "Опубликовано"
	}
	return string(s)
}

// ParseStatus は文字列をStatusに変換する。
// 内部値に加えて表示ラベルも受け付ける。
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st.Valid() {
		return st, nil
	}
	for _, candidate := range Statuses() {
		if candidate.Label() == s {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ContentItem は計画中のコンテンツ1件を表す。
type ContentItem struct {
	ID        string
	UserID    string
	ProjectID string // 空文字列はプロジェクト未指定
	Date      string // YYYY-MM-DD
	Platform  Platform
	Topic     string
	Status    Status
	Link      string
	CreatedAt time.Time
}

// NewContentItem は作成フォームから送られた未保存のコンテンツを表す。
type NewContentItem struct {
	ProjectID string
	Date      string
	Platform  Platform
	Topic     string
	Status    Status
	Link      string
}

// Project はコンテンツをまとめる名前付きのグループを表す。
type Project struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
}

// FilterAll はフィルタの「すべて」を表すワイルドカード。
const FilterAll = "all"

// Filter は一覧表示の絞り込み条件を表す。永続化されない。
type Filter struct {
	Platform string // FilterAll またはPlatformの値
	Status   string // FilterAll またはStatusの値
}

// DefaultFilter はリセット後のフィルタを返す。
func DefaultFilter() Filter {
	return Filter{Platform: FilterAll, Status: FilterAll}
}

// ParseFilter はクエリパラメータの値からFilterを組み立てる。
// 空文字列は FilterAll として扱う。
func ParseFilter(platform, status string) (Filter, error) {
	f := DefaultFilter()
	if platform != "" && platform != FilterAll {
		p, err := ParsePlatform(platform)
		if err != nil {
			return Filter{}, NewInvalidFilterError(platform)
		}
		f.Platform = string(p)
	}
	if status != "" && status != FilterAll {
		s, err := ParseStatus(status)
		if err != nil {
			return Filter{}, NewInvalidFilterError(status)
		}
		f.Status = string(s)
	}
	return f, nil
}

// IsDefault はフィルタが初期状態かどうかを返す。
func (f Filter) IsDefault() bool {
	return f.Platform == FilterAll && f.Status == FilterAll
}

// ViewMode は表示モードを表す。
type ViewMode string

const (
	ViewList     ViewMode = "list"
	ViewCalendar ViewMode = "calendar"
	ViewKanban   ViewMode = "kanban"
)

// ParseViewMode は表示モードを解釈する。不明な値はリスト表示になる。
func ParseViewMode(s string) ViewMode {
	switch ViewMode(s) {
	case ViewCalendar:
		return ViewCalendar
	case ViewKanban:
		return ViewKanban
	}
	return ViewList
}
