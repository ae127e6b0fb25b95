package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/skillshare/internal/model"
)

// newResponse はテスト用のレスポンスを生成する。
func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// recordingDoer は受け取ったリクエストを記録し、固定レスポンスを返すDoer。
type recordingDoer struct {
	mu       sync.Mutex
	requests []*http.Request
	status   int
	err      error
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return newResponse(status, `{}`), nil
}

func (d *recordingDoer) last() *http.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requests) == 0 {
		return nil
	}
	return d.requests[len(d.requests)-1]
}

// staticToken は固定トークンを返すTokenSource。
type staticToken string

func (s staticToken) Token() string { return string(s) }

// mockExpirer はExpire呼び出しを記録するSessionExpirer。
type mockExpirer struct {
	mu     sync.Mutex
	token  string
	calls  []string
	evicts int
}

func (m *mockExpirer) Expire(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, token)
	if token == "" || token != m.token {
		return false, nil
	}
	m.token = ""
	m.evicts++
	return true, nil
}

func TestChain_OrderOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Doer) Doer {
			return DoerFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name+":before")
				resp, err := next.Do(req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}

	d := Chain(&recordingDoer{}, mark("a"), mark("b"), nil, mark("c"))

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/posts", nil)
	if _, err := d.Do(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a:before", "b:before", "c:before", "c:after", "b:after", "a:after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

// TestChain_AuthThenExpiry は認証ヘッダー付与と401処理を組み合わせた場合に
// 401が1回だけセッションを破棄し、Unauthorizedで拒否されることを検証する。
func TestChain_AuthThenExpiry(t *testing.T) {
	base := &recordingDoer{status: http.StatusUnauthorized}
	expirer := &mockExpirer{token: "tok-1"}

	d := Chain(base,
		NewAuthMiddleware(staticToken("tok-1")),
		NewSessionExpiryMiddleware(expirer, discardLogger()),
	)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, "http://example.com/users/me", nil)
		resp, err := d.Do(req)
		if resp != nil {
			t.Errorf("call %d: expected nil response on 401", i)
		}
		if !errors.Is(err, model.ErrUnauthorized) {
			t.Errorf("call %d: err = %v, want ErrUnauthorized", i, err)
		}
	}

	if expirer.evicts != 1 {
		t.Errorf("evicts = %d, want 1", expirer.evicts)
	}
}
