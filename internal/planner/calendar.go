package planner

import (
	"fmt"
	"time"

	"github.com/hitoshi/contentplan/internal/model"
)

// WeekdayLabels は月曜始まりの曜日見出し。
var WeekdayLabels = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

var monthNames = [12]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// Month はカレンダーの基準月を表す。
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf はtの属する月を返す。
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth は "YYYY-MM" 形式の文字列を解釈する。
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// String は "YYYY-MM" 形式を返す。
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Title は見出し用の表示名を返す（例: "Март 2024"）。
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", monthNames[m.Month-1], m.Year)
}

// Add は月をdelta分だけ移動する。年の繰り上がり・繰り下がりを正しく扱う。
func (m Month) Add(delta int) Month {
	idx := m.Year*12 + int(m.Month-1) + delta
	year := idx / 12
	mon := idx % 12
	if mon < 0 {
		mon += 12
		year--
	}
	return Month{Year: year, Month: time.Month(mon + 1)}
}

// Prev は前月を返す。
func (m Month) Prev() Month { return m.Add(-1) }

// Next は翌月を返す。
func (m Month) Next() Month { return m.Add(1) }

// DaysIn は月の日数を返す。
func (m Month) DaysIn() int {
	// 翌月0日は当月末日に正規化される
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LeadingBlanks は月曜始まりの週で1日の前に置く空セルの数を返す。
func (m Month) LeadingBlanks() int {
	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	return (int(first) - int(time.Monday) + 7) % 7
}

// DateKey は日付セルのキー（YYYY-MM-DD）を返す。
func (m Month) DateKey(day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", m.Year, int(m.Month), day)
}

// DayCell はカレンダーの1日分のセル。
type DayCell struct {
	Day     int
	DateKey string
	Today   bool
	Items   []model.ContentItem
}

// Calendar は1か月分のカレンダー表示。
type Calendar struct {
	Month         Month
	LeadingBlanks int
	Days          []DayCell
}

// BuildCalendar はitemsを日付ごとに振り分けて月のカレンダーを組み立てる。
// nowは閲覧者のタイムゾーンでの現在時刻を渡す。該当日のセルにTodayが立つ。
// 同じ日付のitemは入力順を保つ。月外の日付のitemは含まれない。
func BuildCalendar(items []model.ContentItem, m Month, now time.Time) Calendar {
	buckets := make(map[string][]model.ContentItem)
	for _, item := range items {
		buckets[item.Date] = append(buckets[item.Date], item)
	}

	today := now.Format(model.DateLayout)
	days := make([]DayCell, m.DaysIn())
	for i := range days {
		key := m.DateKey(i + 1)
		days[i] = DayCell{
			Day:     i + 1,
			DateKey: key,
			Today:   key == today,
			Items:   buckets[key],
		}
	}

	return Calendar{
		Month:         m,
		LeadingBlanks: m.LeadingBlanks(),
		Days:          days,
	}
}

// Cells はグリッド描画用に先頭の空セルを含めたセル総数を返す。
func (c Calendar) Cells() int {
	return c.LeadingBlanks + len(c.Days)
}

// Blanks はテンプレートのrange用に空セル数ぶんのスライスを返す。
func (c Calendar) Blanks() []struct{} {
	return make([]struct{}, c.LeadingBlanks)
}
