package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/skillshare/internal/model"
)

// SessionExpirer は401受信時にセッションを破棄するインターフェース。
// session.Sessionの部分集合として定義する。
type SessionExpirer interface {
	// Expire はtokenが現在のセッションのトークンと一致する場合に限り、
	// セッションを破棄して永続化されたトークンを削除する。
	// 実際に破棄した場合はtrueを返す。
	Expire(ctx context.Context, token string) (bool, error)
}

// NewSessionExpiryMiddleware は401レスポンスを受け取った際に
// セッションを破棄し、呼び出し元にUnauthorizedエラーを返すミドルウェアを返す。
// 同じトークンに対する破棄は1回だけ行われる。
func NewSessionExpiryMiddleware(expirer SessionExpirer, logger *slog.Logger) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err != nil || AuthSkipped(req.Context()) {
				return resp, err
			}
			if resp.StatusCode != http.StatusUnauthorized {
				return resp, nil
			}

			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			expired, expErr := expirer.Expire(req.Context(), bearerToken(req))
			if expErr != nil {
				logger.Error("failed to evict session token",
					slog.String("error", expErr.Error()),
				)
			}
			if expired {
				logger.Warn("session expired",
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
				)
			}

			return nil, model.NewUnauthorizedError()
		})
	}
}
