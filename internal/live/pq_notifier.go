package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

// ChannelName はデータベーストリガーがpg_notifyする通知チャネル名。
const ChannelName = "contentplan_changes"

// pingInterval は通知が来ない間に接続の生存を確認する間隔。
const pingInterval = 90 * time.Second

// PQNotifier はPostgreSQLのLISTEN/NOTIFYで変更通知を受け取り、Brokerへ流す。
type PQNotifier struct {
	*Broker
	listener *pq.Listener
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewPQNotifier は通知チャネルをLISTENするPQNotifierを生成する。
// minReconnect/maxReconnectは接続断時の再接続間隔。
func NewPQNotifier(dsn string, minReconnect, maxReconnect time.Duration, logger *slog.Logger) (*PQNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	n := &PQNotifier{Broker: NewBroker(), logger: logger}

	n.listener = pq.NewListener(dsn, minReconnect, maxReconnect, n.onEvent)
	if err := n.listener.Listen(ChannelName); err != nil {
		n.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", ChannelName, err)
	}
	return n, nil
}

func (n *PQNotifier) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		n.logger.Info("change listener connected", slog.String("channel", ChannelName))
	case pq.ListenerEventDisconnected:
		n.logger.Warn("change listener disconnected", slog.Any("error", err))
	case pq.ListenerEventReconnected:
		n.logger.Info("change listener reconnected", slog.String("channel", ChannelName))
	case pq.ListenerEventConnectionAttemptFailed:
		n.logger.Warn("change listener connection attempt failed", slog.Any("error", err))
	}
}

// Run はctxがキャンセルされるまで通知を受信して購読者へ配信する。
func (n *PQNotifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return n.Close()
		case notification := <-n.listener.Notify:
			n.dispatch(notification)
		case <-ticker.C:
			if err := n.listener.Ping(); err != nil {
				n.logger.Warn("change listener ping failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close はLISTEN接続を閉じる。Runの終了時にも呼ばれ、複数回呼んでもよい。
func (n *PQNotifier) Close() error {
	n.closeOnce.Do(func() {
		if err := n.listener.Close(); err != nil {
			n.closeErr = fmt.Errorf("failed to close listener: %w", err)
		}
	})
	return n.closeErr
}

// dispatch は1件の通知を配信する。
// nilは再接続を意味し、その間の通知は失われているため全購読者へ再取得を促す。
func (n *PQNotifier) dispatch(notification *pq.Notification) {
	if notification == nil {
		n.Publish(Change{})
		return
	}
	change, err := ParseChange(notification.Extra)
	if err != nil {
		n.logger.Warn("ignoring malformed change notification",
			slog.String("payload", notification.Extra),
			slog.String("error", err.Error()),
		)
		return
	}
	n.Publish(change)
}
