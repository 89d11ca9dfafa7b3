// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はサービスのPrometheusメトリクスを収集する。
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
// serviceはすべてのメトリクスに定数ラベルとして付与される。
func NewCollector(reg prometheus.Registerer, service string) *Collector {
	constLabels := prometheus.Labels{"service": service}
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordergate_http_requests_total",
			Help:        "ルート・メソッド・ステータス別のHTTPリクエスト数",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ordergate_http_request_duration_seconds",
			Help:        "HTTPリクエストの処理時間（秒）",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ordergate_order_transitions_total",
			Help:        "注文ライフサイクル操作の結果別の件数",
			ConstLabels: constLabels,
		}, []string{"operation", "result"}),
	}

	reg.MustRegister(c.requests, c.requestDuration, c.transitions)
	return c
}

// RecordRequest はHTTPリクエストの結果を記録する。
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordTransition は注文操作（create/update/cancel）の結果を記録する。
// resultには "ok" またはエラーコードを渡す。
func (c *Collector) RecordTransition(operation, result string) {
	c.transitions.WithLabelValues(operation, result).Inc()
}

// Middleware はリクエストごとにRecordRequestを呼び出すGinミドルウェアを返す。
// ルートが未登録のリクエストは "unmatched" として集計する。
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.RecordRequest(ctx.Request.Method, route, ctx.Writer.Status(), time.Since(start))
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
