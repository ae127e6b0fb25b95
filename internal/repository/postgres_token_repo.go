// Package repository はPostgreSQLを使用した永続化を提供する。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/skillshare/internal/session"
)

// PostgresTokenRepo はPostgreSQLにベアラートークンを保存するTokenStore。
// 複数ホストのエージェントで同じプロファイルのセッションを共有するために使う。
type PostgresTokenRepo struct {
	db      *sql.DB
	profile string
}

// NewPostgresTokenRepo はprofileをキーにトークンを保存するPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB, profile string) *PostgresTokenRepo {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	return &PostgresTokenRepo{db: db, profile: profile}
}

// Profile はキーとなるプロファイル名を返す。
func (r *PostgresTokenRepo) Profile() string {
	return r.profile
}

// Load は保存済みのトークンを返す。未保存の場合は空文字列を返す。
func (r *PostgresTokenRepo) Load(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx,
		`SELECT token FROM session_tokens WHERE profile = $1`,
		r.profile,
	).Scan(&token)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// Save はトークンを保存する。既存のトークンは上書きされる。
func (r *PostgresTokenRepo) Save(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_tokens (profile, token, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (profile) DO UPDATE SET token = EXCLUDED.token, updated_at = now()`,
		r.profile, token,
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear は保存済みのトークンを削除する。
func (r *PostgresTokenRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE profile = $1`,
		r.profile,
	)
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// compile-time interface check
var _ session.TokenStore = (*PostgresTokenRepo)(nil)
