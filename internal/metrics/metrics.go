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
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordResearchBatch(projectCount int)
	RecordGenerationPlaceholders(count int)
	RecordPublishSuccess()
	RecordPublishFailure(code string)
	RecordPublishLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	researchBatches  prometheus.Counter
	researchProjects prometheus.Counter
	placeholders     prometheus.Counter
	publishSuccess   prometheus.Counter
	publishFail      *prometheus.CounterVec
	publishLatency   prometheus.Histogram
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		researchBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitpost_research_batches_total",
			Help: "実行されたリサーチバッチの合計数",
		}),
		researchProjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitpost_research_projects_total",
			Help: "リサーチで発見されたプロジェクトの合計数",
		}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitpost_generation_placeholders_total",
			Help: "生成欠落によりプレースホルダーで補完された下書きの合計数",
		}),
		publishSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitpost_publish_success_total",
			Help: "Facebook投稿成功の合計数",
		}),
		publishFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitpost_publish_fail_total",
			Help: "Facebook投稿失敗のエラーコード別合計数",
		}, []string{"code"}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitpost_publish_latency_seconds",
			Help:    "Facebook投稿のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitpost_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.researchBatches,
		c.researchProjects,
		c.placeholders,
		c.publishSuccess,
		c.publishFail,
		c.publishLatency,
		c.httpStatus,
	)

	return c
}

// RecordResearchBatch はリサーチバッチの実行と発見プロジェクト数を記録する。
func (c *Collector) RecordResearchBatch(projectCount int) {
	c.researchBatches.Inc()
	c.researchProjects.Add(float64(projectCount))
}

// RecordGenerationPlaceholders はプレースホルダーで補完された件数を記録する。
func (c *Collector) RecordGenerationPlaceholders(count int) {
	c.placeholders.Add(float64(count))
}

// RecordPublishSuccess は投稿成功を記録する。
func (c *Collector) RecordPublishSuccess() {
	c.publishSuccess.Inc()
}

// RecordPublishFailure は投稿失敗をエラーコード付きで記録する。
func (c *Collector) RecordPublishFailure(code string) {
	c.publishFail.WithLabelValues(code).Inc()
}

// RecordPublishLatency は投稿のレイテンシを記録する。
func (c *Collector) RecordPublishLatency(duration time.Duration) {
	c.publishLatency.Observe(duration.Seconds())
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
