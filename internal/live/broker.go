// Package live はユーザー単位のコレクション（content / projects）のライブ購読を提供する。
//
// データベースの変更通知を受け取るたびに、購読者へ並び順どおりの完全なスナップショットを届ける。
// 差分のマージは行わない。画面に見える一覧は常に最後に届いたスナップショットである。
package live

import (
	"encoding/json"
	"fmt"
	"sync"
)

// コレクション名。データベーストリガーの通知ペイロードと一致させる。
const (
	CollectionContent  = "content"
	CollectionProjects = "projects"
)

// Change は1件の変更通知を表す。
// UserIDが空の場合は全ユーザー・全コレクションの変更として扱う（再接続時など）。
type Change struct {
	Collection string `json:"collection"`
	UserID     string `json:"user_id"`
}

// matches は購読キー(userID, collection)がこの変更の対象かを返す。
func (c Change) matches(userID, collection string) bool {
	if c.UserID == "" {
		return true
	}
	return c.UserID == userID && (c.Collection == "" || c.Collection == collection)
}

// ParseChange は通知ペイロード（JSON）をChangeにデコードする。
func ParseChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("failed to decode change payload: %w", err)
	}
	if c.UserID == "" {
		return Change{}, fmt.Errorf("change payload without user_id: %q", payload)
	}
	return c, nil
}

// Notifier は変更通知の購読インターフェース。
type Notifier interface {
	// Subscribe はuserIDとcollectionに一致する変更通知のチャネルを返す。
	// 返された関数で購読を解除する。解除後チャネルには何も送られない。
	Subscribe(userID, collection string) (<-chan Change, func())
}

type subscriber struct {
	userID     string
	collection string
	ch         chan Change
}

// Broker は変更通知を購読者へ振り分けるインメモリ実装。
// 各購読者のチャネルはバッファ1で、未読の通知がある間の後続通知は1件にまとめられる。
// 購読者は通知のたびに全件を再取得するため、まとめても取りこぼしにならない。
type Broker struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewBroker はBrokerを生成する。
func NewBroker() *Broker {
	return &Broker{subs: make(map[*subscriber]struct{})}
}

// Subscribe は変更通知の購読を登録する。
func (b *Broker) Subscribe(userID, collection string) (<-chan Change, func()) {
	s := &subscriber{userID: userID, collection: collection, ch: make(chan Change, 1)}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
		})
	}
}

// Publish は変更を対象の購読者へ送る。送信はブロックしない。
func (b *Broker) Publish(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !c.matches(s.userID, s.collection) {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
}

// Len は現在の購読者数を返す。
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

var _ Notifier = (*Broker)(nil)
