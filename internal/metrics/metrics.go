// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 書き込み操作の種別ラベル。
const (
	OpCreate        = "create"
	OpUpdateStatus  = "update_status"
	OpDelete        = "delete"
	OpCreateProject = "create_project"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ライブフィード、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordMutation(op string, err error, duration time.Duration)
	RecordValidationRejected(op string)
	RecordAuthAttempt(method string, ok bool)
	RecordHTTPStatus(statusCode int)
	SubscriptionOpened()
	SubscriptionClosed()
	RecordSnapshot(collection string, size int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	mutations       *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec
	rejected        *prometheus.CounterVec
	authAttempts    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	subscriptions   prometheus.Gauge
	snapshots       *prometheus.CounterVec
	snapshotSize    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentplan_mutations_total",
			Help: "書き込み操作の合計数（操作種別・結果別）",
		}, []string{"op", "result"}),
		mutationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contentplan_mutation_latency_seconds",
			Help:    "書き込み操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentplan_validation_rejected_total",
			Help: "ストアに到達する前に入力検証で拒否された操作数",
		}, []string{"op"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentplan_auth_attempts_total",
			Help: "認証試行の合計数（方式・結果別）",
		}, []string{"method", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentplan_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contentplan_live_subscriptions",
			Help: "現在アクティブなライブ購読数",
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentplan_snapshots_delivered_total",
			Help: "配信したスナップショット数（コレクション別）",
		}, []string{"collection"}),
		snapshotSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contentplan_snapshot_size",
			Help:    "配信したスナップショットの件数",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6),
		}),
	}

	reg.MustRegister(
		c.mutations,
		c.mutationLatency,
		c.rejected,
		c.authAttempts,
		c.httpStatus,
		c.subscriptions,
		c.snapshots,
		c.snapshotSize,
	)

	return c
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordMutation は書き込み操作の結果とレイテンシを記録する。
func (c *Collector) RecordMutation(op string, err error, duration time.Duration) {
	c.mutations.WithLabelValues(op, result(err == nil)).Inc()
	c.mutationLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordValidationRejected は入力検証で拒否された操作を記録する。
func (c *Collector) RecordValidationRejected(op string) {
	c.rejected.WithLabelValues(op).Inc()
}

// RecordAuthAttempt は認証試行を記録する。
func (c *Collector) RecordAuthAttempt(method string, ok bool) {
	c.authAttempts.WithLabelValues(method, result(ok)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SubscriptionOpened はライブ購読の開始を記録する。
func (c *Collector) SubscriptionOpened() {
	c.subscriptions.Inc()
}

// SubscriptionClosed はライブ購読の終了を記録する。
func (c *Collector) SubscriptionClosed() {
	c.subscriptions.Dec()
}

// RecordSnapshot はスナップショット配信を記録する。
func (c *Collector) RecordSnapshot(collection string, size int) {
	c.snapshots.WithLabelValues(collection).Inc()
	c.snapshotSize.Observe(float64(size))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordMutation(string, error, time.Duration) {}
func (Nop) RecordValidationRejected(string)             {}
func (Nop) RecordAuthAttempt(string, bool)              {}
func (Nop) RecordHTTPStatus(int)                        {}
func (Nop) SubscriptionOpened()                         {}
func (Nop) SubscriptionClosed()                         {}
func (Nop) RecordSnapshot(string, int)                  {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
