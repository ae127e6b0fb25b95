package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/skillshare/internal/model"
)

// NewLoggingMiddleware はリクエストごとにJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、request_idを含む。
// トークンなどのヘッダー値は出力しない。
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.Do(req)

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			status := 0
			if resp != nil {
				status = resp.StatusCode
			} else if err != nil {
				status = model.StatusOf(err)
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", durationMs),
			}

			if id := RequestIDFromContext(req.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}

			// ステータスコードに応じてログレベルを変更
			level := slog.LevelInfo
			switch {
			case status >= 500, err != nil && status == 0:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(req.Context(), level, "http_client_request", attrs...)

			return resp, err
		})
	}
}
