package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/skillshare/internal/apiclient"
	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/session"
)

// --- モック定義 ---

type mockAuthenticator struct {
	loginFn    func(ctx context.Context, email, password string) (*model.AuthResponse, error)
	registerFn func(ctx context.Context, name, email, password string) (*model.AuthResponse, error)
}

func (m *mockAuthenticator) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthenticator) Register(ctx context.Context, name, email, password string) (*model.AuthResponse, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, name, email, password)
	}
	return nil, errors.New("not implemented")
}

type mockProfileFetcher struct {
	calls            int
	getCurrentUserFn func(ctx context.Context) (*model.User, error)
}

func (m *mockProfileFetcher) GetCurrentUser(ctx context.Context) (*model.User, error) {
	m.calls++
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx)
	}
	return nil, errors.New("not implemented")
}

// --- ヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func newTestService(store session.TokenStore, a Authenticator, p ProfileFetcher) (*Service, *session.Session) {
	sess := session.New(store, discardLogger())
	return NewService(sess, a, p, discardLogger()), sess
}

var alice = model.User{ID: 42, Name: "Alice", Email: "alice@example.com"}

// --- Login / Register ---

func TestLogin_Success(t *testing.T) {
	store := session.NewMemoryTokenStore("")
	a := &mockAuthenticator{
		loginFn: func(_ context.Context, email, password string) (*model.AuthResponse, error) {
			if email != "alice@example.com" || password != "pw" {
				t.Errorf("unexpected credentials %q/%q", email, password)
			}
			return &model.AuthResponse{Token: "tok", User: alice}, nil
		},
	}
	svc, sess := newTestService(store, a, &mockProfileFetcher{})

	var states []session.State
	sess.OnChange(func(tr session.Transition) { states = append(states, tr.To) })

	user, err := svc.Login(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != alice.ID {
		t.Errorf("user id = %d, want %d", user.ID, alice.ID)
	}
	if persisted, _ := store.Load(context.Background()); persisted != "tok" {
		t.Errorf("persisted token = %q, want tok", persisted)
	}
	want := []session.State{session.Authenticating, session.Authenticated}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Errorf("transitions = %v, want %v", states, want)
	}
}

// TestLogin_RejectedKeepsNoState は資格情報が拒否された場合に部分的な状態が残らないことを検証する。
func TestLogin_RejectedKeepsNoState(t *testing.T) {
	store := session.NewMemoryTokenStore("")
	a := &mockAuthenticator{
		loginFn: func(context.Context, string, string) (*model.AuthResponse, error) {
			return nil, model.NewInvalidCredentialsError(http.StatusBadRequest)
		},
	}
	svc, sess := newTestService(store, a, &mockProfileFetcher{})

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want InvalidCredentials", err)
	}
	if sess.State() != session.Unauthenticated || sess.Token() != "" {
		t.Errorf("session = %s/%q", sess.State(), sess.Token())
	}
	if persisted, _ := store.Load(context.Background()); persisted != "" {
		t.Errorf("persisted token = %q, want empty", persisted)
	}
}

func TestLogin_ReplacesExistingSession(t *testing.T) {
	store := session.NewMemoryTokenStore("")
	tokens := []string{"first", "second"}
	a := &mockAuthenticator{
		loginFn: func(context.Context, string, string) (*model.AuthResponse, error) {
			tok := tokens[0]
			tokens = tokens[1:]
			return &model.AuthResponse{Token: tok, User: alice}, nil
		},
	}
	svc, sess := newTestService(store, a, &mockProfileFetcher{})
	ctx := context.Background()

	if _, err := svc.Login(ctx, "a", "b"); err != nil {
		t.Fatalf("first Login: %v", err)
	}
	if _, err := svc.Login(ctx, "a", "b"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if sess.Token() != "second" {
		t.Errorf("token = %q, want second", sess.Token())
	}
}

func TestRegister_Conflict(t *testing.T) {
	store := session.NewMemoryTokenStore("")
	a := &mockAuthenticator{
		registerFn: func(context.Context, string, string, string) (*model.AuthResponse, error) {
			return nil, model.NewRegistrationConflictError(http.StatusBadRequest, "Email already registered")
		},
	}
	svc, sess := newTestService(store, a, &mockProfileFetcher{})

	_, err := svc.Register(context.Background(), "Alice", "alice@example.com", "pw")
	if !errors.Is(err, model.ErrRegistrationConflict) {
		t.Fatalf("err = %v, want RegistrationConflict", err)
	}
	if sess.State() != session.Unauthenticated {
		t.Errorf("state = %s", sess.State())
	}
	if last := sess.LastTransition(); last.Reason != session.ReasonRejected {
		t.Errorf("last reason = %q, want %q", last.Reason, session.ReasonRejected)
	}
}

func TestLogout(t *testing.T) {
	store := session.NewMemoryTokenStore("")
	a := &mockAuthenticator{
		loginFn: func(context.Context, string, string) (*model.AuthResponse, error) {
			return &model.AuthResponse{Token: "tok", User: alice}, nil
		},
	}
	svc, sess := newTestService(store, a, &mockProfileFetcher{})
	ctx := context.Background()
	svc.Login(ctx, "a", "b")

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sess.LastTransition().From != session.LoggedOut {
		t.Errorf("last transition = %+v, want settle from LoggedOut", sess.LastTransition())
	}
	if persisted, _ := store.Load(ctx); persisted != "" {
		t.Errorf("token not evicted: %q", persisted)
	}
}

// --- Restore ---

func TestRestore_NoToken(t *testing.T) {
	p := &mockProfileFetcher{}
	svc, sess := newTestService(session.NewMemoryTokenStore(""), &mockAuthenticator{}, p)

	ok, err := svc.Restore(context.Background())
	if err != nil || ok {
		t.Fatalf("Restore = %v, %v; want false, nil", ok, err)
	}
	if p.calls != 0 {
		t.Errorf("GetCurrentUser calls = %d, want 0", p.calls)
	}
	if sess.State() != session.Unauthenticated {
		t.Errorf("state = %s", sess.State())
	}
}

func TestRestore_Valid(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	p := &mockProfileFetcher{
		getCurrentUserFn: func(context.Context) (*model.User, error) { return &alice, nil },
	}
	svc, sess := newTestService(session.NewMemoryTokenStore(token), &mockAuthenticator{}, p)

	ok, err := svc.Restore(context.Background())
	if err != nil || !ok {
		t.Fatalf("Restore = %v, %v; want true, nil", ok, err)
	}
	if u, ok := sess.User(); !ok || u.ID != alice.ID {
		t.Errorf("user = %+v, %v", u, ok)
	}
	if sess.Token() != token {
		t.Error("token not restored")
	}
}

// TestRestore_ExpiredJWTSkipsNetwork は期限切れのJWTを通信せずに削除することを検証する。
func TestRestore_ExpiredJWTSkipsNetwork(t *testing.T) {
	store := session.NewMemoryTokenStore(signedToken(t, time.Now().Add(-time.Hour)))
	p := &mockProfileFetcher{}
	svc, sess := newTestService(store, &mockAuthenticator{}, p)

	ok, err := svc.Restore(context.Background())
	if err != nil || ok {
		t.Fatalf("Restore = %v, %v; want false, nil", ok, err)
	}
	if p.calls != 0 {
		t.Errorf("GetCurrentUser calls = %d, want 0", p.calls)
	}
	if store.Clears() != 1 {
		t.Errorf("clears = %d, want 1", store.Clears())
	}
	if sess.State() != session.Unauthenticated {
		t.Errorf("state = %s", sess.State())
	}
}

func TestRestore_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantErr    bool
		wantClears int
	}{
		{"4xxはトークンを削除", model.NewValidationFailureError(http.StatusNotFound, "User not found"), false, 1},
		{"通信失敗はトークンを残す", model.NewNetworkFailureError(errors.New("connection refused")), true, 0},
		{"5xxはトークンを残す", model.NewServerFailureError(http.StatusBadGateway, ""), true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryTokenStore("opaque-token")
			p := &mockProfileFetcher{
				getCurrentUserFn: func(context.Context) (*model.User, error) { return nil, tt.err },
			}
			svc, sess := newTestService(store, &mockAuthenticator{}, p)

			ok, err := svc.Restore(context.Background())
			if ok {
				t.Error("Restore returned true")
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if p.calls != 1 {
				t.Errorf("GetCurrentUser calls = %d, want 1", p.calls)
			}
			if store.Clears() != tt.wantClears {
				t.Errorf("clears = %d, want %d", store.Clears(), tt.wantClears)
			}
			if sess.State() != session.Unauthenticated {
				t.Errorf("state = %s", sess.State())
			}
		})
	}
}

// TestRestore_RejectedByBackend は起動時にバックエンドがトークンを拒否した場合、
// 1回のリクエストでUnauthenticatedに落ち着くことをAPIクライアント経由で検証する。
func TestRestore_RejectedByBackend(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/users/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	store := session.NewMemoryTokenStore(signedToken(t, time.Now().Add(time.Hour)))
	sess := session.New(store, discardLogger())
	client, err := apiclient.New(ts.URL, sess, apiclient.Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	svc := NewService(sess, client.Auth, client.Users, discardLogger())

	ok, err := svc.Restore(context.Background())
	if err != nil || ok {
		t.Fatalf("Restore = %v, %v; want false, nil", ok, err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
	if sess.State() != session.Unauthenticated {
		t.Errorf("state = %s, want Unauthenticated", sess.State())
	}
	if store.Clears() != 1 {
		t.Errorf("clears = %d, want 1", store.Clears())
	}

	// 2回目の呼び出しでもリクエストは発生しない（トークンは削除済み）
	svc.Restore(context.Background())
	if n := requests.Load(); n != 1 {
		t.Errorf("requests after second Restore = %d, want 1", n)
	}
}
