// Package apiclient はスキル共有プラットフォームのREST APIクライアントを提供する。
//
// リソースごとのサービス（Auth, Users, Posts, LearningPlans, Notifications, Files）を
// Clientのフィールドとして公開する。すべての呼び出しは生成時に1回だけ合成された
// ミドルウェアパイプラインを通過し、認証ヘッダーの付与と401時のセッション破棄は
// パイプライン側で一元的に行われる。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/skillshare/internal/middleware"
	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/security"
)

const (
	// defaultUserAgent はリクエストに付与するUser-Agent。
	defaultUserAgent = "skillshare-cli/1.0"
	// defaultDownloadMaxSize はメディアダウンロードの最大サイズ（20MB）。
	defaultDownloadMaxSize int64 = 20 * 1024 * 1024
	// defaultDownloadTimeout は外部ホストからのダウンロードのタイムアウト。
	defaultDownloadTimeout = 30 * time.Second
)

// SessionHandle はクライアントが必要とするセッションの操作。
// *session.Sessionが満たす。
type SessionHandle interface {
	middleware.TokenSource
	middleware.SessionExpirer
}

// Options はClientの任意設定を保持する。ゼロ値のフィールドはデフォルトが使われる。
type Options struct {
	// HTTPClient はバックエンドへのリクエストに使うクライアント。nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client
	// Logger はリクエストログの出力先。nilの場合はslog.Default()。
	Logger *slog.Logger
	// Metrics はリクエストメトリクスの記録先。nilの場合は記録しない。
	Metrics middleware.MetricsRecorder
	// RateLimiter は送信レートの制限。nilの場合は制限しない。
	RateLimiter *middleware.RateLimiter
	// Middlewares はデフォルトパイプラインの内側（送信直前）に追加するミドルウェア。
	Middlewares []middleware.Middleware
	// Guard はユーザー投稿由来のURLの検証に使う。nilの場合はsecurity.NewSSRFGuard()。
	Guard security.URLGuard
	// DownloadMaxSize はFiles.Downloadで受け付ける最大バイト数。
	DownloadMaxSize int64
	// DownloadTimeout は外部ホストからのダウンロードのタイムアウト。
	DownloadTimeout time.Duration
	// UserAgent はUser-Agentヘッダーの値。
	UserAgent string
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	baseURL   *url.URL
	doer      middleware.Doer
	logger    *slog.Logger
	guard     security.URLGuard
	userAgent string

	downloadClient  *http.Client
	downloadMaxSize int64

	Auth          *AuthService
	Users         *UsersService
	Posts         *PostsService
	LearningPlans *LearningPlansService
	Notifications *NotificationsService
	Files         *FilesService
}

// service は各リソースサービスの共通の土台。
type service struct {
	client *Client
}

// New はベースURLとセッションを受け取りClientを生成する。
// パイプラインは外側から順に
// リクエストID → ログ → メトリクス → レート制限 → 認証ヘッダー → セッション期限切れ処理 → opts.Middlewares
// の順で合成される。
func New(baseURL string, sess SessionHandle, opts Options) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := opts.Guard
	if guard == nil {
		guard = security.NewSSRFGuard()
	}
	maxSize := opts.DownloadMaxSize
	if maxSize <= 0 {
		maxSize = defaultDownloadMaxSize
	}
	downloadTimeout := opts.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = defaultDownloadTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	mws := []middleware.Middleware{
		middleware.NewRequestIDMiddleware(),
		middleware.NewLoggingMiddleware(logger),
	}
	if opts.Metrics != nil {
		mws = append(mws, middleware.NewMetricsMiddleware(opts.Metrics))
	}
	if opts.RateLimiter != nil {
		mws = append(mws, opts.RateLimiter.Middleware())
	}
	mws = append(mws,
		middleware.NewAuthMiddleware(sess),
		middleware.NewSessionExpiryMiddleware(sess, logger),
	)
	mws = append(mws, opts.Middlewares...)

	c := &Client{
		baseURL:         u,
		doer:            middleware.Chain(httpClient, mws...),
		logger:          logger,
		guard:           guard,
		userAgent:       userAgent,
		downloadClient:  guard.NewDownloadClient(downloadTimeout),
		downloadMaxSize: maxSize,
	}
	c.Auth = &AuthService{client: c}
	c.Users = &UsersService{client: c}
	c.Posts = &PostsService{client: c}
	c.LearningPlans = &LearningPlansService{client: c}
	c.Notifications = &NotificationsService{client: c}
	c.Files = &FilesService{client: c}
	return c, nil
}

// BaseURL はクライアントのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// endpoint はベースURLにパスとクエリを結合したURLを返す。
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// newRequest はリクエストを生成する。bodyがnilの場合はボディなし。
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body *encodedBody) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body.data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// call はリクエストを生成して実行し、2xxのレスポンスボディをvにデコードする。
// vがnilの場合、ボディは読み捨てる。
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body *encodedBody, v any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return c.do(req, v)
}

// do はパイプラインを通してリクエストを実行する。
// 送信に失敗した場合はNetworkFailure、非2xxの場合はステータスとサーバーのメッセージを含む
// APIErrorを返す。パイプラインがAPIErrorを返した場合（401など）はそのまま返す。
func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.doer.Do(req)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return err
		}
		return model.NewNetworkFailureError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}

	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewNetworkFailureError(fmt.Errorf("failed to read response body: %w", err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		apiErr := model.NewServerFailureError(resp.StatusCode, "レスポンスの形式が不正です。")
		apiErr.Err = err
		return apiErr
	}
	return nil
}
