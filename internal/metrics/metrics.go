// Package metrics はAPIクライアントのPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// リクエストパイプラインと通知ウォッチャーから利用する。
type MetricsCollector interface {
	RecordRequest(method, path string, statusCode int, duration time.Duration)
	RecordNetworkFailure(method, path string)
	RecordSessionExpired()
	RecordNotificationsSeen(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requests         *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	networkFailures  *prometheus.CounterVec
	sessionExpired   prometheus.Counter
	notificationSeen prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillshare_client_requests_total",
			Help: "エンドポイント・ステータスコード別のリクエスト数",
		}, []string{"method", "path", "status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skillshare_client_request_duration_seconds",
			Help:    "リクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		networkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillshare_client_network_failures_total",
			Help: "サーバーに到達できなかったリクエスト数",
		}, []string{"method", "path"}),
		sessionExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillshare_client_session_expired_total",
			Help: "401によるセッション失効の回数",
		}),
		notificationSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skillshare_watch_notifications_total",
			Help: "ウォッチャーが検出した新着通知の合計数",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.networkFailures,
		c.sessionExpired,
		c.notificationSeen,
	)

	return c
}

// RecordRequest はレスポンスを受け取ったリクエストを記録する。
func (c *Collector) RecordRequest(method, path string, statusCode int, duration time.Duration) {
	route := NormalizePath(path)
	c.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordNetworkFailure はサーバーに到達できなかったリクエストを記録する。
func (c *Collector) RecordNetworkFailure(method, path string) {
	c.networkFailures.WithLabelValues(method, NormalizePath(path)).Inc()
}

// RecordSessionExpired はセッション失効を記録する。
func (c *Collector) RecordSessionExpired() {
	c.sessionExpired.Inc()
}

// RecordNotificationsSeen は新着通知の件数を記録する。
func (c *Collector) RecordNotificationsSeen(count int) {
	if count > 0 {
		c.notificationSeen.Add(float64(count))
	}
}

// NormalizePath はラベルの値が増え続けないよう、パス中のIDとファイル名を置き換える。
//
//	/posts/12/like → /posts/{id}/like
//	/files/3f2a.png → /files/{name}
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = "{id}"
			continue
		}
		if i > 0 && segments[i-1] == "files" && seg != "upload" {
			segments[i] = "{name}"
		}
	}
	return strings.Join(segments, "/")
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
