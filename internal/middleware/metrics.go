package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/skillshare/internal/model"
)

// MetricsRecorder はリクエストメトリクスの記録先インターフェース。
// metrics.Collectorが実装する。
type MetricsRecorder interface {
	RecordRequest(method, path string, statusCode int, duration time.Duration)
	RecordNetworkFailure(method, path string)
	RecordSessionExpired()
}

// NewMetricsMiddleware はリクエスト数・レイテンシ・セッション失効を記録するミドルウェアを返す。
func NewMetricsMiddleware(rec MetricsRecorder) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			duration := time.Since(start)

			switch {
			case resp != nil:
				rec.RecordRequest(req.Method, req.URL.Path, resp.StatusCode, duration)
			case errors.Is(err, model.ErrUnauthorized):
				rec.RecordRequest(req.Method, req.URL.Path, http.StatusUnauthorized, duration)
				rec.RecordSessionExpired()
			case err != nil:
				rec.RecordNetworkFailure(req.Method, req.URL.Path)
			}

			return resp, err
		})
	}
}
