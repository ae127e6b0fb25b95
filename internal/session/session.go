package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/skillshare/internal/model"
)

// Listener は状態遷移の通知を受け取る関数。
type Listener func(Transition)

// Session はベアラートークンと認証済みユーザーのスナップショットを保持する。
// APIクライアントに注入され、トークンの付与と401時の破棄に使われる。
// すべてのメソッドはゴルーチンセーフ。
type Session struct {
	mu        sync.Mutex
	store     TokenStore
	logger    *slog.Logger
	state     State
	token     string
	user      *model.User
	last      Transition
	listeners []Listener
	now       func() time.Time
}

// New はUnauthenticated状態のSessionを生成する。
func New(store TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:  store,
		logger: logger,
		state:  Unauthenticated,
		now:    time.Now,
	}
}

// Store はトークンの永続化先を返す。
func (s *Session) Store() TokenStore {
	return s.store
}

// State は現在の状態を返す。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token は現在のトークンを返す。未認証の場合は空文字列。
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User は認証済みユーザーのスナップショットを返す。
func (s *Session) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.state != Authenticated {
		return model.User{}, false
	}
	return *s.user, true
}

// LastTransition は直近の状態遷移を返す。
// Expired/LoggedOutを経てUnauthenticatedに落ち着いた後も、その理由を確認できる。
func (s *Session) LastTransition() Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// OnChange は状態遷移のリスナーを登録する。
// リスナーはロックの外で、遷移が起きたゴルーチンから同期的に呼ばれる。
func (s *Session) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Begin はUnauthenticatedからAuthenticatingへ遷移する。
// ログイン・登録ではtokenは空、起動時の再検証では永続化済みのトークンを渡す。
func (s *Session) Begin(token, reason string) error {
	s.mu.Lock()
	trs, err := s.transitionLocked(reason, Authenticating)
	if err == nil {
		s.token = token
		s.user = nil
	}
	s.mu.Unlock()

	s.notify(trs)
	return err
}

// Establish はAuthenticatingからAuthenticatedへ遷移し、トークンを永続化する。
// 永続化に失敗した場合はUnauthenticatedに戻してエラーを返す。
func (s *Session) Establish(ctx context.Context, token string, user model.User) error {
	if token == "" {
		return fmt.Errorf("establish session: empty token")
	}

	s.mu.Lock()
	if s.state != Authenticating {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("establish session: invalid transition %s -> %s", state, Authenticated)
	}

	if err := s.store.Save(ctx, token); err != nil {
		trs, _ := s.transitionLocked(ReasonRejected, Unauthenticated)
		s.token = ""
		s.user = nil
		s.mu.Unlock()
		s.notify(trs)
		return fmt.Errorf("failed to persist token: %w", err)
	}

	trs, err := s.transitionLocked(ReasonAuthenticated, Authenticated)
	s.token = token
	u := user
	s.user = &u
	s.mu.Unlock()

	s.notify(trs)
	return err
}

// Reject はAuthenticatingからUnauthenticatedへ戻す。部分的な状態は保持しない。
// evictがtrueの場合は永続化されたトークンも削除する（起動時の再検証失敗）。
func (s *Session) Reject(ctx context.Context, evict bool) error {
	s.mu.Lock()
	trs, err := s.transitionLocked(ReasonRejected, Unauthenticated)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.token = ""
	s.user = nil

	var clearErr error
	if evict {
		clearErr = s.store.Clear(ctx)
	}
	s.mu.Unlock()

	s.notify(trs)
	if clearErr != nil {
		return fmt.Errorf("failed to evict token: %w", clearErr)
	}
	return nil
}

// Expire は401を受け取った際にセッションを破棄する。
// tokenが現在のトークンと一致する場合のみ、永続化されたトークンを削除して
// Expired（再検証中であればUnauthenticated）へ遷移する。
// 同じトークンで複数回呼ばれても破棄は1回だけ行われる。
func (s *Session) Expire(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	if token == "" || token != s.token {
		s.mu.Unlock()
		return false, nil
	}

	var trs []Transition
	switch s.state {
	case Authenticated:
		t1, _ := s.transitionLocked(ReasonExpired, Expired)
		t2, _ := s.transitionLocked(ReasonSettled, Unauthenticated)
		trs = append(t1, t2...)
	case Authenticating:
		trs, _ = s.transitionLocked(ReasonRejected, Unauthenticated)
	default:
		s.mu.Unlock()
		return false, nil
	}
	s.token = ""
	s.user = nil
	clearErr := s.store.Clear(ctx)
	s.mu.Unlock()

	s.notify(trs)
	if clearErr != nil {
		return true, fmt.Errorf("failed to evict token: %w", clearErr)
	}
	return true, nil
}

// Logout は明示的なログアウトを行い、永続化されたトークンを削除する。
// 未認証状態で呼ばれた場合も永続化されたトークンは削除する。
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	var trs []Transition
	if s.state == Authenticated {
		t1, _ := s.transitionLocked(ReasonLogout, LoggedOut)
		t2, _ := s.transitionLocked(ReasonSettled, Unauthenticated)
		trs = append(t1, t2...)
	}
	s.token = ""
	s.user = nil
	clearErr := s.store.Clear(ctx)
	s.mu.Unlock()

	s.notify(trs)
	if clearErr != nil {
		return fmt.Errorf("failed to evict token: %w", clearErr)
	}
	return nil
}

// UpdateUser は認証済みユーザーのスナップショットを更新する（プロフィール更新後など）。
func (s *Session) UpdateUser(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated {
		return
	}
	u := user
	s.user = &u
}

// transitionLocked は状態遷移を行う。呼び出し元はロックを保持していること。
func (s *Session) transitionLocked(reason string, to State) ([]Transition, error) {
	from := s.state
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("invalid session transition %s -> %s", from, to)
	}
	s.state = to
	tr := Transition{From: from, To: to, Reason: reason, At: s.now()}
	s.last = tr

	s.logger.Debug("session transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("reason", reason),
	)
	return []Transition{tr}, nil
}

// notify はロックの外でリスナーに遷移を通知する。
func (s *Session) notify(trs []Transition) {
	if len(trs) == 0 {
		return
	}
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, tr := range trs {
		for _, fn := range listeners {
			fn(tr)
		}
	}
}
