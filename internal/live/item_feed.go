package live

import (
	"context"
	"slices"
	"sync"

	"github.com/hitoshi/contentplan/internal/model"
)

// ItemFeed は1つの閲覧コンテキストが持つコンテンツ一覧。
// 同時に有効な購読は常に1つだけで、セッションの切り替え時は旧購読を解除してから新しく購読する。
type ItemFeed struct {
	feed     *Feed[model.ContentItem]
	onUpdate func([]model.ContentItem)

	// switchMu はSetSessionを直列化する。muより先に取る。
	switchMu sync.Mutex
	sub      *Subscription

	mu     sync.Mutex
	userID string
	items  []model.ContentItem
}

// NewItemFeed はItemFeedを生成する。onUpdateはスナップショットで一覧が置き換わるたびに呼ばれる（nil可）。
func NewItemFeed(feed *Feed[model.ContentItem], onUpdate func([]model.ContentItem)) *ItemFeed {
	return &ItemFeed{feed: feed, onUpdate: onUpdate}
}

// SetSession は購読対象のユーザーを切り替える。
// 空文字列はサインアウトを表し、購読を解除して一覧を空にする。
// 同じユーザーの購読が生きている場合は何もしない。
func (f *ItemFeed) SetSession(ctx context.Context, userID string) error {
	f.switchMu.Lock()
	defer f.switchMu.Unlock()

	if f.sub != nil && f.UserID() == userID {
		select {
		case <-f.sub.Done():
		default:
			return nil
		}
	}

	if f.sub != nil {
		f.sub.Close()
		f.sub = nil
		f.replace("", nil)
	}

	if userID == "" {
		return nil
	}

	sub, err := f.feed.Subscribe(ctx, userID, func(items []model.ContentItem) {
		f.replace(userID, items)
	})
	if err != nil {
		return err
	}
	f.sub = sub
	return nil
}

// replace は一覧をスナップショットで丸ごと置き換える。
func (f *ItemFeed) replace(userID string, items []model.ContentItem) {
	f.mu.Lock()
	f.userID = userID
	f.items = items
	f.mu.Unlock()

	if f.onUpdate != nil {
		f.onUpdate(slices.Clone(items))
	}
}

// UserID は現在購読中のユーザーIDを返す。
func (f *ItemFeed) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

// Items は最新のスナップショットのコピーを返す。
func (f *ItemFeed) Items() []model.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

// Done は現在の購読が終了すると閉じられるチャネルを返す。購読がない場合はnil。
func (f *ItemFeed) Done() <-chan struct{} {
	f.switchMu.Lock()
	defer f.switchMu.Unlock()
	if f.sub == nil {
		return nil
	}
	return f.sub.Done()
}

// Close は購読を解除し一覧を空にする。
func (f *ItemFeed) Close() {
	_ = f.SetSession(context.Background(), "")
}
