package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はクライアント側のレート制限の設定を保持する。
// バックエンドへの送信レートを抑えるためのもので、超過時はエラーにせず待機する。
type RateLimiterConfig struct {
	GeneralRate  rate.Limit // API全般のレート（req/sec）。0以下で無制限
	GeneralBurst int        // API全般のバーストサイズ
	UploadRate   rate.Limit // マルチパート送信（ファイルアップロード）のレート（req/sec）
	UploadBurst  int        // アップロードのバーストサイズ
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 10 req/sec、アップロード 2 req/sec。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:  rate.Limit(10),
		GeneralBurst: 20,
		UploadRate:   rate.Limit(2),
		UploadBurst:  4,
	}
}

// RateLimiter はクライアント全体で共有するレートリミッター。
// API全般のレート制限とアップロードのレート制限の2種類を提供する。
type RateLimiter struct {
	general *rate.Limiter
	upload  *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimiter は新しいRateLimiterを生成する。
// レートが0以下のリミッターは無制限として扱う。
func NewRateLimiter(config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		general: newLimiter(config.GeneralRate, config.GeneralBurst),
		upload:  newLimiter(config.UploadRate, config.UploadBurst),
		logger:  logger,
	}
}

func newLimiter(r rate.Limit, burst int) *rate.Limiter {
	if r <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(r, burst)
}

// Middleware はリクエスト送信前にトークンの補充を待つミドルウェアを返す。
// マルチパートのリクエストはAPI全般とアップロードの両方のリミッターを通過する。
// 待機中にコンテキストがキャンセルされた場合はエラーを返す。
func (rl *RateLimiter) Middleware() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()

			if !rl.general.Allow() {
				rl.logger.Debug("rate limit reached, waiting",
					slog.String("limit_type", "general"),
					slog.String("path", req.URL.Path),
				)
				if err := rl.general.Wait(ctx); err != nil {
					return nil, fmt.Errorf("rate limit wait: %w", err)
				}
			}

			if isMultipart(req) {
				if err := rl.upload.Wait(ctx); err != nil {
					return nil, fmt.Errorf("upload rate limit wait: %w", err)
				}
			}

			return next.Do(req)
		})
	}
}

func isMultipart(req *http.Request) bool {
	return strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/")
}
