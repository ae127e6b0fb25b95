package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader はリクエストIDを送るヘッダー名。
const RequestIDHeader = "X-Request-ID"

var requestIDContextKey = contextKey("request_id")

// NewRequestIDMiddleware は各リクエストにUUIDのリクエストIDを付与するミドルウェアを返す。
// 呼び出し元がヘッダーを設定済みの場合はそれを尊重する。
func NewRequestIDMiddleware() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			id := req.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
				req.Header.Set(RequestIDHeader, id)
			}
			ctx := context.WithValue(req.Context(), requestIDContextKey, id)
			return next.Do(req.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
