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
// プロバイダ、リポジトリ、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordRefresh(duration time.Duration, ok bool)
	RecordRefreshSuperseded()
	RecordNotification(op string)
	RecordStoreFailure(op string)
	RecordHTTPStatus(statusCode int)
	RecordImageFetch(ok bool)
	SetCachedProducts(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	refreshTotal      *prometheus.CounterVec
	refreshLatency    prometheus.Histogram
	refreshSuperseded prometheus.Counter
	notifications     *prometheus.CounterVec
	storeFailures     *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	imageFetch        *prometheus.CounterVec
	cachedProducts    prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogo_refresh_total",
			Help: "商品一覧リフレッシュの合計数（結果別）",
		}, []string{"result"}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogo_refresh_latency_seconds",
			Help:    "商品一覧リフレッシュのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		refreshSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogo_refresh_superseded_total",
			Help: "後続のリフレッシュにより破棄された結果の合計数",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogo_change_notifications_total",
			Help: "受信した変更通知の合計数（種別別）",
		}, []string{"op"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogo_store_failures_total",
			Help: "ストア操作失敗の合計数（操作別）",
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		imageFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogo_image_fetch_total",
			Help: "画像プロキシの取得数（結果別）",
		}, []string{"result"}),
		cachedProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalogo_cached_products",
			Help: "プロバイダがキャッシュしている商品数",
		}),
	}

	reg.MustRegister(
		c.refreshTotal,
		c.refreshLatency,
		c.refreshSuperseded,
		c.notifications,
		c.storeFailures,
		c.httpStatus,
		c.imageFetch,
		c.cachedProducts,
	)

	return c
}

// RecordRefresh はリフレッシュの結果とレイテンシを記録する。
func (c *Collector) RecordRefresh(duration time.Duration, ok bool) {
	c.refreshTotal.WithLabelValues(resultLabel(ok)).Inc()
	c.refreshLatency.Observe(duration.Seconds())
}

// RecordRefreshSuperseded は破棄されたリフレッシュ結果を記録する。
func (c *Collector) RecordRefreshSuperseded() {
	c.refreshSuperseded.Inc()
}

// RecordNotification は変更通知の受信を記録する。
func (c *Collector) RecordNotification(op string) {
	c.notifications.WithLabelValues(op).Inc()
}

// RecordStoreFailure はストア操作の失敗を記録する。
func (c *Collector) RecordStoreFailure(op string) {
	c.storeFailures.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordImageFetch は画像取得の結果を記録する。
func (c *Collector) RecordImageFetch(ok bool) {
	c.imageFetch.WithLabelValues(resultLabel(ok)).Inc()
}

// SetCachedProducts はキャッシュ中の商品数を設定する。
func (c *Collector) SetCachedProducts(count int) {
	c.cachedProducts.Set(float64(count))
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordRefresh(time.Duration, bool) {}
func (NopCollector) RecordRefreshSuperseded()          {}
func (NopCollector) RecordNotification(string)         {}
func (NopCollector) RecordStoreFailure(string)         {}
func (NopCollector) RecordHTTPStatus(int)              {}
func (NopCollector) RecordImageFetch(bool)             {}
func (NopCollector) SetCachedProducts(int)             {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
