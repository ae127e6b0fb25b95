package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, handler http.Handler, path string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// TestSetupMetricsRoute_ExposesClientAndWatcherMetrics は401による失効と
// ウォッチャーの新着通知が/metricsのテキスト形式に反映されることを検証する。
func TestSetupMetricsRoute_ExposesClientAndWatcherMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("GET", "/notifications/unread-count", 200, 20*time.Millisecond)
	c.RecordRequest("GET", "/posts/42", 401, 5*time.Millisecond)
	c.RecordSessionExpired()
	c.RecordNetworkFailure("POST", "/files/upload")
	c.RecordNotificationsSeen(2)
	c.RecordNotificationsSeen(1)

	status, body := scrape(t, SetupMetricsRoute(reg), "/metrics")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}

	wantLines := []string{
		`skillshare_client_requests_total{method="GET",path="/notifications/unread-count",status_code="200"} 1`,
		`skillshare_client_requests_total{method="GET",path="/posts/{id}",status_code="401"} 1`,
		`skillshare_client_session_expired_total 1`,
		`skillshare_client_network_failures_total{method="POST",path="/files/upload"} 1`,
		`skillshare_watch_notifications_total 3`,
		`skillshare_client_request_duration_seconds_count{method="GET",path="/posts/{id}"} 1`,
	}
	for _, line := range wantLines {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("metrics output should contain %q", line)
		}
	}
	if strings.Contains(body, `path="/posts/42"`) {
		t.Error("raw post id should not appear as a label value")
	}
}

func TestSetupMetricsRoute_OnlyServesMetricsPath(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	if status, _ := scrape(t, SetupMetricsRoute(reg), "/debug"); status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
}
