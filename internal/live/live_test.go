package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/contentplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore はユーザーごとのコンテンツを保持するテスト用ストア。
type fakeStore struct {
	mu    sync.Mutex
	items map[string][]model.ContentItem
	loads atomic.Int32
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string][]model.ContentItem)}
}

func (s *fakeStore) set(userID string, items ...model.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = items
}

func (s *fakeStore) load(ctx context.Context, userID string) ([]model.ContentItem, error) {
	s.loads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.ContentItem(nil), s.items[userID]...), nil
}

func item(id, date string) model.ContentItem {
	return model.ContentItem{ID: id, Date: date, Platform: model.PlatformTelegram, Topic: id, Status: model.StatusIdea}
}

func ids(items []model.ContentItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

// snapshots はコールバックで受け取ったスナップショットを記録する。
type snapshots struct {
	mu  sync.Mutex
	got [][]model.ContentItem
}

func (s *snapshots) add(items []model.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, items)
}

func (s *snapshots) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func (s *snapshots) last() []model.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return nil
	}
	return s.got[len(s.got)-1]
}

func TestParseChange(t *testing.T) {
	c, err := ParseChange(`{"collection":"content","user_id":"u1"}`)
	require.NoError(t, err)
	assert.Equal(t, Change{Collection: CollectionContent, UserID: "u1"}, c)

	_, err = ParseChange(`not json`)
	assert.Error(t, err)

	_, err = ParseChange(`{"collection":"content"}`)
	assert.Error(t, err)
}

func TestBroker_RoutesByUserAndCollection(t *testing.T) {
	b := NewBroker()
	content, unsubContent := b.Subscribe("u1", CollectionContent)
	projects, unsubProjects := b.Subscribe("u1", CollectionProjects)
	other, unsubOther := b.Subscribe("u2", CollectionContent)
	defer unsubContent()
	defer unsubProjects()
	defer unsubOther()

	b.Publish(Change{Collection: CollectionContent, UserID: "u1"})

	assert.Len(t, content, 1)
	assert.Len(t, projects, 0)
	assert.Len(t, other, 0)

	// 再接続は全員へ
	b.Publish(Change{})
	assert.Len(t, projects, 1)
	assert.Len(t, other, 1)
}

func TestBroker_CoalescesAndUnsubscribes(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe("u1", CollectionContent)

	for i := 0; i < 5; i++ {
		b.Publish(Change{Collection: CollectionContent, UserID: "u1"})
	}
	assert.Len(t, ch, 1)
	assert.Equal(t, 1, b.Len())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.Len())
}

func TestFeed_DeliversInitialSnapshotSynchronously(t *testing.T) {
	store := newFakeStore()
	store.set("u1", item("b", "2024-03-16"), item("a", "2024-03-15"))
	feed := NewFeed(CollectionContent, store.load, NewBroker(), nil, nil)

	var got snapshots
	sub, err := feed.Subscribe(context.Background(), "u1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	require.Equal(t, 1, got.len())
	assert.Equal(t, []string{"b", "a"}, ids(got.last()))
}

func TestFeed_ReloadsOnChange(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker()
	feed := NewFeed(CollectionContent, store.load, broker, nil, nil)

	var got snapshots
	sub, err := feed.Subscribe(context.Background(), "u1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	store.set("u1", item("new", "2024-03-20"))
	broker.Publish(Change{Collection: CollectionContent, UserID: "u1"})

	require.Eventually(t, func() bool { return got.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"new"}, ids(got.last()))
}

func TestFeed_IgnoresOtherUsersAndCollections(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker()
	feed := NewFeed(CollectionContent, store.load, broker, nil, nil)

	var got snapshots
	sub, err := feed.Subscribe(context.Background(), "u1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	broker.Publish(Change{Collection: CollectionContent, UserID: "u2"})
	broker.Publish(Change{Collection: CollectionProjects, UserID: "u1"})

	assert.Never(t, func() bool { return got.len() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, int32(1), store.loads.Load())
}

func TestFeed_NoCallbackAfterClose(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker()
	feed := NewFeed(CollectionContent, store.load, broker, nil, nil)

	var closed atomic.Bool
	var late atomic.Int32
	sub, err := feed.Subscribe(context.Background(), "u1", func([]model.ContentItem) {
		if closed.Load() {
			late.Add(1)
		}
	})
	require.NoError(t, err)

	// 配信中のCloseでも、戻った後にコールバックは呼ばれない
	for i := 0; i < 20; i++ {
		broker.Publish(Change{Collection: CollectionContent, UserID: "u1"})
	}
	sub.Close()
	closed.Store(true)
	sub.Close()

	for i := 0; i < 20; i++ {
		broker.Publish(Change{Collection: CollectionContent, UserID: "u1"})
	}
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, late.Load())
	assert.Equal(t, 0, broker.Len())
}

func TestFeed_InitialLoadErrorReleasesSubscription(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	broker := NewBroker()
	feed := NewFeed(CollectionContent, store.load, broker, nil, nil)

	sub, err := feed.Subscribe(context.Background(), "u1", func([]model.ContentItem) {
		t.Fatal("callback must not fire on failed subscribe")
	})

	assert.Error(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, 0, broker.Len())
}

func TestFeed_ReloadErrorKeepsSubscription(t *testing.T) {
	store := newFakeStore()
	broker := NewBroker()
	feed := NewFeed(CollectionContent, store.load, broker, nil, nil)

	var got snapshots
	sub, err := feed.Subscribe(context.Background(), "u1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	store.mu.Lock()
	store.err = errors.New("timeout")
	store.mu.Unlock()
	broker.Publish(Change{Collection: CollectionContent, UserID: "u1"})
	require.Eventually(t, func() bool { return store.loads.Load() == 2 }, time.Second, 5*time.Millisecond)

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	store.set("u1", item("x", "2024-01-01"))
	broker.Publish(Change{Collection: CollectionContent, UserID: "u1"})

	require.Eventually(t, func() bool { return got.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"x"}, ids(got.last()))
}

func TestFeed_ContextCancelEndsSubscription(t *testing.T) {
	broker := NewBroker()
	feed := NewFeed(CollectionContent, newFakeStore().load, broker, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := feed.Subscribe(ctx, "u1", func([]model.ContentItem) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not end after context cancel")
	}
	assert.Equal(t, 0, broker.Len())
}

func TestItemFeed_SwitchingSessionsKeepsOneSubscription(t *testing.T) {
	store := newFakeStore()
	store.set("u1", item("u1-a", "2024-03-15"))
	store.set("u2", item("u2-a", "2024-04-01"), item("u2-b", "2024-03-01"))
	broker := NewBroker()
	f := NewItemFeed(NewFeed(CollectionContent, store.load, broker, nil, nil), nil)
	defer f.Close()

	require.NoError(t, f.SetSession(context.Background(), "u1"))
	assert.Equal(t, []string{"u1-a"}, ids(f.Items()))
	assert.Equal(t, 1, broker.Len())

	require.NoError(t, f.SetSession(context.Background(), "u2"))
	assert.Equal(t, "u2", f.UserID())
	assert.Equal(t, []string{"u2-a", "u2-b"}, ids(f.Items()))
	assert.Equal(t, 1, broker.Len())

	// 旧セッションの変更は反映されない
	store.set("u1", item("stale", "2024-05-01"))
	broker.Publish(Change{Collection: CollectionContent, UserID: "u1"})
	assert.Never(t, func() bool { return f.UserID() != "u2" || len(f.Items()) != 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestItemFeed_SameSessionIsNoop(t *testing.T) {
	store := newFakeStore()
	f := NewItemFeed(NewFeed(CollectionContent, store.load, NewBroker(), nil, nil), nil)
	defer f.Close()

	require.NoError(t, f.SetSession(context.Background(), "u1"))
	require.NoError(t, f.SetSession(context.Background(), "u1"))
	assert.Equal(t, int32(1), store.loads.Load())
}

func TestItemFeed_SignOutClearsList(t *testing.T) {
	store := newFakeStore()
	store.set("u1", item("a", "2024-03-15"))
	broker := NewBroker()

	var updates snapshots
	f := NewItemFeed(NewFeed(CollectionContent, store.load, broker, nil, nil), updates.add)

	require.NoError(t, f.SetSession(context.Background(), "u1"))
	require.Len(t, f.Items(), 1)

	require.NoError(t, f.SetSession(context.Background(), ""))
	assert.Empty(t, f.Items())
	assert.Empty(t, f.UserID())
	assert.Equal(t, 0, broker.Len())
	assert.Empty(t, updates.last())
	assert.Nil(t, f.Done())
}

func TestItemFeed_ItemsReturnsCopy(t *testing.T) {
	store := newFakeStore()
	store.set("u1", item("a", "2024-03-15"))
	f := NewItemFeed(NewFeed(CollectionContent, store.load, NewBroker(), nil, nil), nil)
	defer f.Close()

	require.NoError(t, f.SetSession(context.Background(), "u1"))
	items := f.Items()
	items[0].Topic = "changed"
	assert.Equal(t, "a", f.Items()[0].Topic)
}
