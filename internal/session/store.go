package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore はベアラートークンの永続化インターフェース。
// 保存されていないことは未認証を意味する。
type TokenStore interface {
	// Load は保存済みのトークンを返す。未保存の場合は空文字列とnilを返す。
	Load(ctx context.Context) (string, error)
	// Save はトークンを保存する。既存のトークンは上書きされる。
	Save(ctx context.Context, token string) error
	// Clear は保存済みのトークンを削除する。未保存の場合もエラーにしない。
	Clear(ctx context.Context) error
}

// FileTokenStore は単一のファイルにトークンを保存するTokenStore。
// ファイルは所有者のみ読み書き可能（0600）で作成する。
type FileTokenStore struct {
	path string
}

// NewFileTokenStore はpathにトークンを保存するFileTokenStoreを生成する。
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath はユーザー設定ディレクトリ配下の既定のトークンファイルパスを返す。
func DefaultTokenPath(profile string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	if profile == "" {
		profile = "default"
	}
	return filepath.Join(dir, "skillshare", profile+".token"), nil
}

// Path はトークンファイルのパスを返す。
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load は保存済みのトークンを読み込む。
func (s *FileTokenStore) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save は一時ファイルに書き込んでからリネームし、トークンを保存する。
func (s *FileTokenStore) Save(ctx context.Context, token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod token file: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Clear はトークンファイルを削除する。
func (s *FileTokenStore) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore はメモリ上にトークンを保持するTokenStore。
// テストや一時的な利用向け。
type MemoryTokenStore struct {
	mu     sync.Mutex
	token  string
	clears int
}

// NewMemoryTokenStore は初期トークンを持つMemoryTokenStoreを生成する。
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

// Load は保持しているトークンを返す。
func (s *MemoryTokenStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Save はトークンを保持する。
func (s *MemoryTokenStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear は保持しているトークンを破棄する。
func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.clears++
	return nil
}

// Clears はClearが呼ばれた回数を返す。
func (s *MemoryTokenStore) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// compile-time interface check
var (
	_ TokenStore = (*FileTokenStore)(nil)
	_ TokenStore = (*MemoryTokenStore)(nil)
)
