// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordBookCreated()
	RecordSummarySuccess()
	RecordSummaryFailure()
	RecordSummaryLatency(duration time.Duration)
	RecordHistoryAppendFailure()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	booksCreated      prometheus.Counter
	summarySuccess    prometheus.Counter
	summaryFail       prometheus.Counter
	summaryLatency    prometheus.Histogram
	historyAppendFail prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		booksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_books_created_total",
			Help: "登録された書籍の合計数",
		}),
		summarySuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_summary_success_total",
			Help: "要約生成成功の合計数",
		}),
		summaryFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_summary_fail_total",
			Help: "要約生成失敗の合計数",
		}),
		summaryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookman_summary_latency_seconds",
			Help:    "要約生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		historyAppendFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_history_append_fail_total",
			Help: "活動台帳への追記失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.booksCreated,
		c.summarySuccess,
		c.summaryFail,
		c.summaryLatency,
		c.historyAppendFail,
		c.httpStatus,
	)

	return c
}

// RecordBookCreated は書籍登録を記録する。
func (c *Collector) RecordBookCreated() {
	c.booksCreated.Inc()
}

// RecordSummarySuccess は要約生成成功を記録する。
func (c *Collector) RecordSummarySuccess() {
	c.summarySuccess.Inc()
}

// RecordSummaryFailure は要約生成失敗を記録する。
func (c *Collector) RecordSummaryFailure() {
	c.summaryFail.Inc()
}

// RecordSummaryLatency は要約生成のレイテンシを記録する。
func (c *Collector) RecordSummaryLatency(duration time.Duration) {
	c.summaryLatency.Observe(duration.Seconds())
}

// RecordHistoryAppendFailure は活動台帳への追記失敗を記録する。
func (c *Collector) RecordHistoryAppendFailure() {
	c.historyAppendFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
