package live

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/contentplan/internal/metrics"
)

// Loader はユーザーのコレクション全件を並び順どおりに取得する。
type Loader[T any] func(ctx context.Context, userID string) ([]T, error)

// Feed は1つのコレクションのライブ購読を生成する。
type Feed[T any] struct {
	collection string
	load       Loader[T]
	notifier   Notifier
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewFeed はFeedを生成する。
func NewFeed[T any](collection string, load Loader[T], notifier Notifier, collector metrics.MetricsCollector, logger *slog.Logger) *Feed[T] {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed[T]{
		collection: collection,
		load:       load,
		notifier:   notifier,
		metrics:    collector,
		logger:     logger,
	}
}

// Subscription はライブ購読のハンドル。
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Close は購読を解除する。Closeが戻った後にコールバックが呼ばれることはない。
// 複数回呼んでもよい。コールバックの中から呼んではならない。
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Done は購読が終了すると閉じられるチャネルを返す。
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe はuserIDのコレクションを購読する。
// 初回スナップショットは呼び出し元のgoroutineでonSnapshotに渡してから戻る。
// 以降は変更通知のたびに全件を再取得して渡す。onSnapshotは同時に複数呼ばれない。
// ctxがキャンセルされた場合も購読は終了する。
func (f *Feed[T]) Subscribe(ctx context.Context, userID string, onSnapshot func([]T)) (*Subscription, error) {
	// 初回取得との間に起きた変更を取りこぼさないよう、先に通知を購読する
	changes, unsubscribe := f.notifier.Subscribe(userID, f.collection)

	initial, err := f.load(ctx, userID)
	if err != nil {
		unsubscribe()
		return nil, fmt.Errorf("failed to load %s snapshot: %w", f.collection, err)
	}
	onSnapshot(initial)
	f.metrics.RecordSnapshot(f.collection, len(initial))

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	f.metrics.SubscriptionOpened()

	go func() {
		defer close(sub.done)
		defer f.metrics.SubscriptionClosed()
		defer unsubscribe()

		for {
			select {
			case <-subCtx.Done():
				return
			case <-changes:
			}

			items, err := f.load(subCtx, userID)
			if subCtx.Err() != nil {
				return
			}
			if err != nil {
				f.logger.Error("failed to reload snapshot",
					slog.String("collection", f.collection),
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				continue
			}
			onSnapshot(items)
			f.metrics.RecordSnapshot(f.collection, len(items))
		}
	}()

	return sub, nil
}
