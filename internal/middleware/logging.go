package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/contentplan/internal/metrics"
)

// statusRecorder はステータスコードと書き込みバイト数を記録するResponseWriter。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
	bytes      int
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Flush はSSEのために下位のhttp.Flusherへ委譲する。
func (sr *statusRecorder) Flush() {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap はhttp.ResponseControllerが元のResponseWriterに到達できるようにする。
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// NewLoggingMiddleware はリクエストごとに1行のhttp_requestログを出し、ステータスを集計する。
// routeにはchiのルートパターン（/api/items/{id} など）が入り、IDを含まない粒度で集計できる。
func NewLoggingMiddleware(logger *slog.Logger, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			// ユーザーIDは内側のセッションミドルウェアが注入するため、保持先を先に渡しておく
			holder := &userIDHolder{}
			next.ServeHTTP(rec, r.WithContext(withUserIDHolder(r.Context(), holder)))

			duration := time.Since(start)
			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					args = append(args, slog.String("route", pattern))
				}
			}
			if holder.userID != "" {
				args = append(args, slog.String("user_id", holder.userID))
			} else if userID, err := UserIDFromContext(r.Context()); err == nil {
				args = append(args, slog.String("user_id", userID))
			}

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
			collector.RecordHTTPStatus(rec.statusCode)
		})
	}
}
