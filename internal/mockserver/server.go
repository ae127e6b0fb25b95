// Package mockserver はREST APIのインメモリ実装を提供する。
//
// クライアントの結合テストとローカル開発（skillshare mock-server）に使用する。
// 実際のバックエンドと同じエンドポイント、ページエンベロープ、
// 認証エラーのプレーンテキスト応答を再現する。
package mockserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Config はモックサーバーの設定を保持する。
type Config struct {
	JWTSecret string        // トークン署名の秘密鍵。空の場合は固定値
	TokenTTL  time.Duration // トークンの有効期間。0以下の場合は24時間
	Logger    *slog.Logger  // nilの場合はslog.Default()
}

const (
	defaultJWTSecret = "skillshare-mock-secret"
	defaultTokenTTL  = 24 * time.Hour
)

// Server はモックバックエンド。
type Server struct {
	store  *store
	tokens *tokenIssuer
	logger *slog.Logger
	now    func() time.Time
}

// New はモックサーバーを生成する。
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = defaultJWTSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	s := &Server{
		store:  newStore(),
		logger: logger,
		now:    time.Now,
	}
	s.tokens = &tokenIssuer{secret: []byte(secret), ttl: ttl, now: func() time.Time { return s.now() }}
	return s
}

// IssueToken は指定ユーザーのトークンを発行する。テストで期限切れなどのトークンを作るために使う。
func (s *Server) IssueToken(userID int64, ttl time.Duration) (string, error) {
	return s.tokens.issueWithTTL(userID, ttl)
}

// Handler は全エンドポイントを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → AccessLog → (認証が必要なルートのみ) Authenticate
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(newRecoveryMiddleware(s.logger))
	r.Use(newAccessLogMiddleware(s.logger))

	// --- 認証不要のルート ---
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
	})
	r.Get("/files/{name}", s.handleServeFile)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", s.handleGetMe)
			r.Put("/me", s.handleUpdateMe)
			r.Post("/me/profile-picture", s.handleUpdateProfilePicture)
			r.Get("/search", s.handleSearchUsers)
			r.Get("/{id}", s.handleGetUser)
			r.Post("/{id}/follow", s.handleFollow)
			r.Delete("/{id}/follow", s.handleUnfollow)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.Post("/", s.handleCreatePost)
			r.Get("/feed", s.handleFeed)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPost)
				r.Put("/", s.handleUpdatePost)
				r.Delete("/", s.handleDeletePost)
				r.Post("/like", s.handleLike)
				r.Delete("/like", s.handleUnlike)
			})
		})

		r.Route("/learning-plans", func(r chi.Router) {
			r.Get("/", s.handleListPlans)
			r.Post("/", s.handleCreatePlan)
			r.Get("/my-plans", s.handleMyPlans)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPlan)
				r.Put("/", s.handleUpdatePlan)
				r.Delete("/", s.handleDeletePlan)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread-count", s.handleUnreadCount)
			r.Post("/mark-all-read", s.handleMarkAllRead)
			r.Delete("/clear-read", s.handleClearRead)
		})

		r.Post("/files/upload", s.handleUpload)
	})

	return r
}
