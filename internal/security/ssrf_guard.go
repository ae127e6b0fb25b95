// Package security はクライアントのセキュリティ機能を提供する。
//
// URLGuard はユーザー投稿由来のURL（メディアURL、学習ステップのリソースURL）を扱う際に
// プライベートネットワークへのアクセスを防ぐ。
package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuard はユーザー投稿由来のURLを検証する。
type URLGuard interface {
	// CheckURL はURLを静的に検証し、解釈済みのURLを返す。
	// 拒否した場合は*BlockedURLErrorを返す。DNS解決は行わない。
	CheckURL(rawURL string) (*url.URL, error)

	// NewDownloadClient は接続時に解決後のIPアドレスを検証するHTTPクライアントを生成する。
	NewDownloadClient(timeout time.Duration) *http.Client
}

// BlockReason はURLを拒否した理由。
type BlockReason string

const (
	ReasonMalformed      BlockReason = "malformed"
	ReasonScheme         BlockReason = "scheme"
	ReasonPrivateAddress BlockReason = "private_address"
	ReasonLocalHost      BlockReason = "local_host"
)

// ErrBlockedURL はerrors.Isで拒否されたURLを判定するためのセンチネル。
var ErrBlockedURL = errors.New("blocked url")

// BlockedURLError はURLGuardがURLを拒否したことを表す。
type BlockedURLError struct {
	URL    string
	Reason BlockReason
	Detail string
}

func (e *BlockedURLError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("blocked url (%s): %s", e.Reason, e.URL)
	}
	return fmt.Sprintf("blocked url (%s): %s: %s", e.Reason, e.URL, e.Detail)
}

// Is はErrBlockedURLとの比較でtrueを返す。
func (e *BlockedURLError) Is(target error) bool {
	return target == ErrBlockedURL
}

var thisNetwork = netip.MustParsePrefix("0.0.0.0/8")

type ssrfGuard struct{}

// NewSSRFGuard はURLGuardを生成する。
func NewSSRFGuard() URLGuard {
	return &ssrfGuard{}
}

// NewDownloadClient はsafeurlでラップしたHTTPクライアントを生成する。ポートは80と443のみ。
func (g *ssrfGuard) NewDownloadClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(config).Client
}

func (g *ssrfGuard) CheckURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	blocked := func(reason BlockReason, detail string) (*url.URL, error) {
		return nil, &BlockedURLError{URL: rawURL, Reason: reason, Detail: detail}
	}

	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return blocked(ReasonMalformed, "")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return blocked(ReasonScheme, u.Scheme)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return blocked(ReasonMalformed, "no host")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if !isPublicAddr(addr) {
			return blocked(ReasonPrivateAddress, addr.String())
		}
		return u, nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return blocked(ReasonLocalHost, host)
	}
	return u, nil
}

// isPublicAddr はループバック、プライベート、リンクローカル（メタデータIPを含む）、
// 未指定アドレスのいずれでもない場合にtrueを返す。
func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsUnspecified(),
		addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast(), addr.IsInterfaceLocalMulticast():
		return false
	case addr.Is4() && thisNetwork.Contains(addr):
		return false
	}
	return true
}
