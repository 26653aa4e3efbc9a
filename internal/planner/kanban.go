package planner

import (
	"slices"

	"github.com/hitoshi/contentplan/internal/model"
)

// Column はカンバンの1列。
type Column struct {
	Status model.Status
	Items  []model.ContentItem
}

// BuildKanban はステータスの定義順に1列ずつ作り、各列を日付昇順に並べる。
// 同じ日付のitemは入力順を保つ。
func BuildKanban(items []model.ContentItem) []Column {
	statuses := model.Statuses()
	columns := make([]Column, len(statuses))
	index := make(map[model.Status]int, len(statuses))
	for i, s := range statuses {
		columns[i] = Column{Status: s, Items: []model.ContentItem{}}
		index[s] = i
	}

	for _, item := range items {
		i, ok := index[item.Status]
		if !ok {
			continue
		}
		columns[i].Items = append(columns[i].Items, item)
	}

	for i := range columns {
		// YYYY-MM-DD は文字列比較で日付順になる
		slices.SortStableFunc(columns[i].Items, func(a, b model.ContentItem) int {
			switch {
			case a.Date < b.Date:
				return -1
			case a.Date > b.Date:
				return 1
			}
			return 0
		})
	}
	return columns
}

// DropNeedsUpdate はカードを列へドロップしたときにステータス更新が必要かどうかを返す。
// 自分の列へのドロップは何もしない。
func DropNeedsUpdate(item model.ContentItem, target model.Status) bool {
	return target.Valid() && item.Status != target
}
