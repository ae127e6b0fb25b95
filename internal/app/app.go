// Package app はskillshareコマンドの組み立てと実行を提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/hitoshi/skillshare/internal/apiclient"
	"github.com/hitoshi/skillshare/internal/auth"
	"github.com/hitoshi/skillshare/internal/config"
	"github.com/hitoshi/skillshare/internal/database"
	"github.com/hitoshi/skillshare/internal/logger"
	"github.com/hitoshi/skillshare/internal/metrics"
	"github.com/hitoshi/skillshare/internal/middleware"
	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/repository"
	"github.com/hitoshi/skillshare/internal/security"
	"github.com/hitoshi/skillshare/internal/session"
)

// Version はビルド時に -ldflags "-X .../internal/app.Version=..." で上書きする。
var Version = "dev"

const (
	// annotationOffline はバックエンドに接続しないコマンドを示す。
	annotationOffline = "skillshare/offline"
	// annotationAuthEntry はログイン・登録のように未認証で実行するコマンドを示す。
	annotationAuthEntry = "skillshare/auth-entry"

	sessionExpiredMessage = "session expired, run `skillshare login`"
)

var errNotLoggedIn = errors.New("not logged in, run `skillshare login`")

// App はコマンド実行中に共有する依存関係を保持する。
// バックエンドへの接続はコマンドの実行直前に1回だけ組み立てる。
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	errOut    io.Writer
	sanitizer security.TextSanitizer
	jsonOut   bool

	registry *prometheus.Registry
	metrics  *metrics.Collector
	sess     *session.Session
	client   *apiclient.Client
	auth     *auth.Service

	expiredNotified atomic.Bool
	closers         []func() error
}

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// ログはwに出力する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, lg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。コマンドの出力はw、ログとエラーは標準エラーに出力する。
func Run(w io.Writer, args []string) error {
	return Execute(context.Background(), w, os.Stderr, args)
}

// Execute はコマンドを実行する。エラーはerrOutに表示した上で返す。
func Execute(ctx context.Context, out, errOut io.Writer, args []string) error {
	cfg, lg, err := Init(errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return err
	}

	a := newApp(cfg, lg, out, errOut)
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		a.reportError(err)
		return err
	}
	return nil
}

func newApp(cfg *config.Config, lg *slog.Logger, out, errOut io.Writer) *App {
	return &App{
		cfg:       cfg,
		logger:    lg,
		out:       out,
		errOut:    errOut,
		sanitizer: security.NewTextSanitizer(),
	}
}

// rootCommand はサブコマンドを登録したルートコマンドを生成する。
func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "skillshare",
		Short:             "Command line client for the skill sharing platform",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.prepare,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.BaseURL, "base-url", a.cfg.BaseURL, "backend base URL")
	flags.StringVar(&a.cfg.Profile, "profile", a.cfg.Profile, "session profile name")
	flags.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		a.loginCommand(),
		a.registerCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.feedCommand(),
		a.exploreCommand(),
		a.postCommand(),
		a.plansCommand(),
		a.notificationsCommand(),
		a.usersCommand(),
		a.uploadCommand(),
		a.downloadCommand(),
		a.watchCommand(),
		a.migrateCommand(),
		a.mockServerCommand(),
		a.versionCommand(),
	)
	return root
}

// prepare はコマンドの実行前にクライアントを組み立て、永続化されたセッションを復元する。
func (a *App) prepare(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationOffline] == "true" || cmd.Name() == "help" {
		return nil
	}

	ctx := cmd.Context()
	if err := a.connect(ctx); err != nil {
		return err
	}

	restored, err := a.auth.Restore(ctx)
	if err != nil {
		if cmd.Annotations[annotationAuthEntry] == "true" {
			a.logger.Warn("failed to restore session", slog.String("error", err.Error()))
			return nil
		}
		return fmt.Errorf("failed to restore session: %w", err)
	}
	a.logger.Debug("session restore finished", slog.Bool("restored", restored))
	return nil
}

// connect はトークンストア・セッション・APIクライアントを組み立てる。
func (a *App) connect(ctx context.Context) error {
	if a.client != nil {
		return nil
	}

	store, err := a.tokenStore(ctx)
	if err != nil {
		return err
	}

	a.sess = session.New(store, a.logger)
	a.sess.OnChange(a.onSessionChange)

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewCollector(a.registry)

	client, err := apiclient.New(a.cfg.BaseURL, a.sess, apiclient.Options{
		HTTPClient:      &http.Client{Timeout: a.cfg.HTTPTimeout},
		Logger:          a.logger,
		Metrics:         a.metrics,
		RateLimiter:     a.rateLimiter(),
		DownloadMaxSize: a.cfg.DownloadMaxSize,
		DownloadTimeout: a.cfg.DownloadTimeout,
		UserAgent:       "skillshare-cli/" + Version,
	})
	if err != nil {
		return err
	}

	a.client = client
	a.auth = auth.NewService(a.sess, client.Auth, client.Users, a.logger)
	return nil
}

// tokenStore は設定に応じたトークンの永続化先を返す。
// PostgreSQLのDSNが設定されていればプロファイル単位でDBに保存する。
func (a *App) tokenStore(ctx context.Context) (session.TokenStore, error) {
	switch {
	case a.cfg.TokenDatabaseURL != "":
		db, err := database.Open(a.cfg.TokenDatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Ping(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return repository.NewPostgresTokenRepo(db, a.cfg.Profile), nil
	case a.cfg.TokenFile != "":
		return session.NewFileTokenStore(a.cfg.TokenFile), nil
	default:
		path, err := session.DefaultTokenPath(a.cfg.Profile)
		if err != nil {
			return nil, err
		}
		return session.NewFileTokenStore(path), nil
	}
}

// rateLimiter はSKILLSHARE_RATE_LIMITが0以下の場合はnil（無制限）を返す。
func (a *App) rateLimiter() *middleware.RateLimiter {
	if a.cfg.RateLimit <= 0 {
		return nil
	}
	return middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:  rate.Limit(a.cfg.RateLimit),
		GeneralBurst: a.cfg.RateBurst,
		UploadRate:   rate.Limit(a.cfg.UploadRate),
		UploadBurst:  4,
	}, a.logger)
}

// onSessionChange はセッション失効時に再ログインを促す。
func (a *App) onSessionChange(tr session.Transition) {
	if tr.To != session.Expired {
		return
	}
	a.logger.Warn("session expired", slog.String("reason", tr.Reason))
	a.notifyExpired()
}

func (a *App) notifyExpired() {
	if !a.expiredNotified.Swap(true) {
		fmt.Fprintln(a.errOut, sessionExpiredMessage)
	}
}

// requireLogin は認証済みユーザーを返す。未認証の場合はerrNotLoggedIn。
func (a *App) requireLogin() (model.User, error) {
	user, ok := a.sess.User()
	if !ok {
		return model.User{}, errNotLoggedIn
	}
	return user, nil
}

// reportError はエラーを利用者向けに表示する。
func (a *App) reportError(err error) {
	if errors.Is(err, model.ErrUnauthorized) {
		a.notifyExpired()
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(a.errOut, "error: %s\n", a.clean(apiErr.Message))
		if apiErr.Action != "" {
			fmt.Fprintln(a.errOut, apiErr.Action)
		}
		return
	}
	fmt.Fprintf(a.errOut, "error: %v\n", err)
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", slog.String("error", err.Error()))
		}
	}
}
