// Package planner はコンテンツ一覧から画面表示用の派生構造（絞り込み、カレンダー、カンバン）を組み立てる。
// 全ての関数は純粋関数であり、入力スライスを変更しない。
package planner

import "github.com/hitoshi/contentplan/internal/model"

// Filter はプラットフォームとステータスで一覧を絞り込む。入力順は保持される。
func Filter(items []model.ContentItem, f model.Filter) []model.ContentItem {
	out := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if Matches(item, f) {
			out = append(out, item)
		}
	}
	return out
}

// Matches はitemがフィルタ条件を満たすかどうかを返す。
func Matches(item model.ContentItem, f model.Filter) bool {
	platformOK := f.Platform == model.FilterAll || f.Platform == "" || f.Platform == string(item.Platform)
	statusOK := f.Status == model.FilterAll || f.Status == "" || f.Status == string(item.Status)
	return platformOK && statusOK
}
