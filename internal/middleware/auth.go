package middleware

import (
	"context"
	"net/http"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// skipAuthContextKey は認証ヘッダー付与と401処理を省略するリクエストを示すキー。
var skipAuthContextKey = contextKey("skip_auth")

// TokenSource は現在のセッションのトークンを提供するインターフェース。
// session.Sessionの部分集合として定義する。
type TokenSource interface {
	Token() string
}

// NewAuthMiddleware は現在のセッションのトークンを
// Authorization: Bearer ヘッダーとして付与するミドルウェアを返す。
// トークンが空の場合はヘッダー自体を付与しない。
func NewAuthMiddleware(src TokenSource) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if AuthSkipped(req.Context()) {
				req.Header.Del("Authorization")
				return next.Do(req)
			}

			if token := src.Token(); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			} else {
				req.Header.Del("Authorization")
			}
			return next.Do(req)
		})
	}
}

// WithoutAuth は認証ヘッダー付与と401によるセッション破棄を省略するコンテキストを返す。
// ログイン・登録リクエストで使用する。
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthContextKey, true)
}

// AuthSkipped はコンテキストが認証省略を指定しているかを返す。
func AuthSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipAuthContextKey).(bool)
	return skip
}

// bearerToken はリクエストに付与されたBearerトークンを返す。
func bearerToken(req *http.Request) string {
	const prefix = "Bearer "
	h := req.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
