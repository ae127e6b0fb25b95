// Package auth はログイン・登録・ログアウトと起動時のセッション復元を提供する。
//
// セッションの状態遷移はsession.Sessionが管理し、このパッケージは
// APIクライアントの呼び出し結果に応じて遷移を駆動する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/session"
)

// Authenticator は資格情報をトークンに交換するインターフェース。
// apiclient.AuthServiceが満たす。
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*model.AuthResponse, error)
}

// ProfileFetcher はトークンの持ち主を取得するインターフェース。
// apiclient.UsersServiceが満たす。
type ProfileFetcher interface {
	GetCurrentUser(ctx context.Context) (*model.User, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	sess    *session.Session
	auth    Authenticator
	profile ProfileFetcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(sess *session.Session, auth Authenticator, profile ProfileFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sess:    sess,
		auth:    auth,
		profile: profile,
		logger:  logger,
		now:     time.Now,
	}
}

// Login はメールアドレスとパスワードでログインし、トークンを永続化する。
// 認証済みの場合は既存のセッションを破棄してからログインする。
// 拒否された場合はUnauthenticatedに戻り、部分的な状態は残さない。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	return s.authenticate(ctx, session.ReasonLogin, func() (*model.AuthResponse, error) {
		return s.auth.Login(ctx, email, password)
	})
}

// Register は新規登録し、そのままログイン状態にする。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	return s.authenticate(ctx, session.ReasonRegister, func() (*model.AuthResponse, error) {
		return s.auth.Register(ctx, name, email, password)
	})
}

func (s *Service) authenticate(ctx context.Context, reason string, exchange func() (*model.AuthResponse, error)) (*model.User, error) {
	if s.sess.State() == session.Authenticated {
		if err := s.sess.Logout(ctx); err != nil {
			return nil, fmt.Errorf("failed to discard previous session: %w", err)
		}
	}
	if err := s.sess.Begin("", reason); err != nil {
		return nil, err
	}

	res, err := exchange()
	if err != nil {
		if rerr := s.sess.Reject(ctx, false); rerr != nil {
			s.logger.Error("failed to reset session", slog.String("error", rerr.Error()))
		}
		return nil, err
	}

	if err := s.sess.Establish(ctx, res.Token, res.User); err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated",
		slog.Int64("user_id", res.User.ID),
		slog.String("reason", reason),
	)
	user := res.User
	return &user, nil
}

// Logout はセッションを破棄し、永続化されたトークンを削除する。
// バックエンドにはログアウトのエンドポイントがないため通信は行わない。
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sess.Logout(ctx); err != nil {
		return err
	}
	s.logger.Info("user logged out")
	return nil
}

// Restore は起動時に永続化されたトークンを検証し、セッションを復元する。
// 検証は現在のユーザーの取得による1回だけで、再試行はしない。
//
//   - トークンなし: Unauthenticatedのまま
//   - JWTのexpが過去: 通信せずにトークンを削除
//   - 401または4xx: トークンを削除してUnauthenticated
//   - 通信失敗・5xx: トークンを残してUnauthenticated、エラーを返す
//
// 復元できた場合はtrueを返す。
func (s *Service) Restore(ctx context.Context) (bool, error) {
	if state := s.sess.State(); state != session.Unauthenticated {
		return state == session.Authenticated, nil
	}

	token, err := s.sess.Store().Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load persisted token: %w", err)
	}
	if token == "" {
		return false, nil
	}

	if err := s.sess.Begin(token, session.ReasonRestore); err != nil {
		return false, err
	}

	if session.IsExpired(token, s.now()) {
		s.logger.Info("persisted token already expired")
		if err := s.sess.Reject(ctx, true); err != nil {
			return false, err
		}
		return false, nil
	}

	user, err := s.profile.GetCurrentUser(ctx)
	if err != nil {
		return false, s.rejectRestore(ctx, err)
	}

	if err := s.sess.Establish(ctx, token, *user); err != nil {
		return false, err
	}
	s.logger.Info("session restored", slog.Int64("user_id", user.ID))
	return true, nil
}

// rejectRestore は復元の検証失敗を処理する。
// バックエンドがトークンを拒否した場合はnilを返し、それ以外は元のエラーを返す。
func (s *Service) rejectRestore(ctx context.Context, cause error) error {
	if errors.Is(cause, model.ErrUnauthorized) {
		// 401の場合はパイプラインがセッションを破棄済み
		if s.sess.State() == session.Authenticating {
			if err := s.sess.Reject(ctx, true); err != nil {
				return err
			}
		}
		s.logger.Info("persisted token rejected by backend")
		return nil
	}

	status := model.StatusOf(cause)
	evict := status >= 400 && status < 500
	if err := s.sess.Reject(ctx, evict); err != nil {
		s.logger.Error("failed to reset session", slog.String("error", err.Error()))
	}
	if evict {
		s.logger.Info("persisted token rejected by backend", slog.Int("status", status))
		return nil
	}
	s.logger.Warn("session restore failed",
		slog.String("error", cause.Error()),
	)
	return fmt.Errorf("failed to validate persisted token: %w", cause)
}
