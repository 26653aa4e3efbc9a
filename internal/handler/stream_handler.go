package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/contentplan/internal/live"
	"github.com/hitoshi/contentplan/internal/model"
)

// defaultHeartbeat はSSE接続を維持するためのコメント送信間隔。
const defaultHeartbeat = 30 * time.Second

// SSEイベント名。
const (
	eventContent  = "content"
	eventProjects = "projects"
)

// latest は最新の値だけを保持する容量1のチャネル。
// 受信側が遅れている間に届いた古い値は新しい値で置き換えられる。
type latest[T any] struct {
	ch chan T
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{ch: make(chan T, 1)}
}

func (l *latest[T]) put(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}

// StreamHandler はライブ購読のスナップショットをServer-Sent Eventsで配信する。
type StreamHandler struct {
	items     *live.Feed[model.ContentItem]
	projects  *live.Feed[model.Project]
	heartbeat time.Duration
}

// NewStreamHandler はStreamHandlerを生成する。
func NewStreamHandler(items *live.Feed[model.ContentItem], projects *live.Feed[model.Project]) *StreamHandler {
	return &StreamHandler{
		items:     items,
		projects:  projects,
		heartbeat: defaultHeartbeat,
	}
}

// Stream は接続ごとにコンテンツとプロジェクトを購読し、変更のたびに全件のスナップショットを送る。
// 接続直後に現在のスナップショットを1回ずつ送る。
// GET /api/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("streaming not supported by response writer")
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	ctx := r.Context()
	itemUpdates := newLatest[[]model.ContentItem]()
	projectUpdates := newLatest[[]model.Project]()

	// 接続単位で1つのItemFeedがセッションの一覧を保持する
	itemFeed := live.NewItemFeed(h.items, itemUpdates.put)
	defer itemFeed.Close()
	if err := itemFeed.SetSession(ctx, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	projectSub, err := h.projects.Subscribe(ctx, userID, projectUpdates.put)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer projectSub.Close()

	// サーバーの書き込みタイムアウトを長時間接続では無効にする
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.Warn("failed to clear write deadline", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-itemFeed.Done():
			return
		case <-projectSub.Done():
			return
		case items := <-itemUpdates.ch:
			if err := writeEvent(w, eventContent, toItemResponses(items)); err != nil {
				slog.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		case projects := <-projectUpdates.ch:
			if err := writeEvent(w, eventProjects, toProjectResponses(projects)); err != nil {
				slog.Debug("stream write failed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent はSSEのイベントを1件書き込む。
func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event, err)
	}
	return nil
}
