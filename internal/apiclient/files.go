package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/skillshare/internal/model"
)

// FilesService はファイルのアップロードとダウンロードを扱う。
type FilesService service

type uploadFields struct {
	Category string `json:"category,omitempty"`
}

// Upload はファイルをアップロードし、保存先のURLを返す。
// 返されたURLは投稿のmediaUrlsやプロフィール画像の指定に使う。
// 相対URLが返された場合はベースURLで解決する。
func (s *FilesService) Upload(ctx context.Context, file *Attachment, category string) (string, error) {
	if file == nil {
		return "", model.NewClientValidationError("アップロードするファイルを指定してください。")
	}

	body, err := encodePayload(uploadFields{Category: strings.TrimSpace(category)}, "file", []*Attachment{file})
	if err != nil {
		return "", err
	}

	var res model.FileUploadResponse
	if err := s.client.call(ctx, http.MethodPost, "/files/upload", nil, body, &res); err != nil {
		return "", err
	}
	if res.FileURL == "" {
		return "", model.NewServerFailureError(http.StatusOK, "レスポンスにファイルURLが含まれていません。")
	}
	return s.resolve(res.FileURL)
}

func (s *FilesService) resolve(fileURL string) (string, error) {
	ref, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL %q: %w", fileURL, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base := *s.client.baseURL
	base.Path += "/"
	return base.ResolveReference(ref).String(), nil
}

// Download はメディアURLの内容をwに書き込み、書き込んだバイト数を返す。
// バックエンドと同じホストのURLは認証付きでパイプラインを通し、
// それ以外のホストはユーザー投稿由来のURLとしてSSRF防止クライアントで取得する。
// 上限サイズを超えた場合はErrDownloadTooLargeを返す。
func (s *FilesService) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return 0, model.NewClientValidationError(fmt.Sprintf("不正なURLです: %s", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.client.userAgent)

	var resp *http.Response
	if s.isBackendHost(target) {
		resp, err = s.client.doer.Do(req)
	} else {
		if _, verr := s.client.guard.CheckURL(target.String()); verr != nil {
			return 0, blockedURLError("このURLからはダウンロードできません", verr)
		}
		resp, err = s.client.downloadClient.Do(req)
	}
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return 0, err
		}
		return 0, model.NewNetworkFailureError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, errorFromResponse(resp)
	}
	if resp.ContentLength > s.client.downloadMaxSize {
		return 0, fmt.Errorf("%w: %d bytes (max %d)", ErrDownloadTooLarge, resp.ContentLength, s.client.downloadMaxSize)
	}

	n, err := io.Copy(w, io.LimitReader(resp.Body, s.client.downloadMaxSize+1))
	if err != nil {
		return n, model.NewNetworkFailureError(fmt.Errorf("failed to read download body: %w", err))
	}
	if n > s.client.downloadMaxSize {
		s.client.logger.Warn("download truncated",
			slog.String("host", target.Host),
			slog.Int64("max_size", s.client.downloadMaxSize),
		)
		return n, fmt.Errorf("%w: max %d bytes", ErrDownloadTooLarge, s.client.downloadMaxSize)
	}
	return n, nil
}

func (s *FilesService) isBackendHost(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, s.client.baseURL.Scheme) &&
		strings.EqualFold(u.Host, s.client.baseURL.Host)
}
