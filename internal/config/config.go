// Package config は環境変数からCLIとモックバックエンドの設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	BaseURL         string
	HTTPTimeout     time.Duration
	DownloadMaxSize int64
	DownloadTimeout time.Duration

	// Session
	Profile          string
	TokenFile        string
	TokenDatabaseURL string

	// Rate Limit
	RateLimit  float64
	RateBurst  int
	UploadRate float64

	// Watch
	WatchInterval time.Duration
	MetricsAddr   string

	// Logging
	LogLevel string

	// Mock server
	MockServerPort string
	MockJWTSecret  string
	MockTokenTTL   time.Duration
}

// LoadDotEnv は.envファイルが存在すれば環境変数に読み込む。
// 既に設定されている環境変数は上書きしない。ファイルが無い場合はエラーにしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// ベースURLが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(getEnvString("SKILLSHARE_BASE_URL", "http://localhost:8080"), "/")
	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return nil, err
	}

	cfg.HTTPTimeout = getEnvDuration("SKILLSHARE_HTTP_TIMEOUT", 0)
	cfg.DownloadMaxSize = getEnvInt64("SKILLSHARE_DOWNLOAD_MAX_SIZE", 20<<20)
	cfg.DownloadTimeout = getEnvDuration("SKILLSHARE_DOWNLOAD_TIMEOUT", 30*time.Second)

	cfg.Profile = getEnvString("SKILLSHARE_PROFILE", "default")
	cfg.TokenFile = getEnvString("SKILLSHARE_TOKEN_FILE", "")
	cfg.TokenDatabaseURL = getEnvString("SKILLSHARE_TOKEN_DATABASE_URL", "")

	cfg.RateLimit = getEnvFloat("SKILLSHARE_RATE_LIMIT", 10)
	cfg.RateBurst = getEnvInt("SKILLSHARE_RATE_BURST", 20)
	cfg.UploadRate = getEnvFloat("SKILLSHARE_UPLOAD_RATE_LIMIT", 2)

	cfg.WatchInterval = getEnvDuration("SKILLSHARE_WATCH_INTERVAL", 30*time.Second)
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = 30 * time.Second
	}
	cfg.MetricsAddr = getEnvString("SKILLSHARE_METRICS_ADDR", "")

	cfg.LogLevel = getEnvString("LOG_LEVEL", "warn")

	cfg.MockServerPort = getEnvString("MOCK_SERVER_PORT", "8080")
	cfg.MockJWTSecret = getEnvString("MOCK_JWT_SECRET", "skillshare-mock-secret")
	cfg.MockTokenTTL = getEnvDuration("MOCK_TOKEN_TTL", 24*time.Hour)

	return cfg, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid SKILLSHARE_BASE_URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid SKILLSHARE_BASE_URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
