package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/skillshare/internal/database"
	"github.com/hitoshi/skillshare/internal/metrics"
	"github.com/hitoshi/skillshare/internal/mockserver"
	"github.com/hitoshi/skillshare/internal/worker/watch"
)

const shutdownTimeout = 10 * time.Second

func (a *App) watchCommand() *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for new notifications until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireLogin(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv, err := a.startMetricsServer(metricsAddr)
				if err != nil {
					return err
				}
				defer a.shutdownServer(srv, "metrics server")
			}

			w := watch.NewWatcher(a.client.Notifications, a.notificationPrinter, a.metrics, a.logger)
			return w.Start(ctx, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", a.cfg.WatchInterval, "polling interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", a.cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

// startMetricsServer は/metricsを公開するHTTPサーバーをバックグラウンドで起動する。
func (a *App) startMetricsServer(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           metrics.SetupMetricsRoute(a.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	a.logger.Info("metrics server started", slog.String("addr", ln.Addr().String()))
	return srv, nil
}

func (a *App) shutdownServer(srv *http.Server, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to shut down "+name, slog.String("error", err.Error()))
	}
}

func (a *App) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "migrate",
		Short:       "Apply the token store schema to SKILLSHARE_TOKEN_DATABASE_URL",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.TokenDatabaseURL == "" {
				return errors.New("SKILLSHARE_TOKEN_DATABASE_URL is not set")
			}

			a.logger.Info("running database migrations",
				slog.String("database_url", maskDatabaseURL(a.cfg.TokenDatabaseURL)),
			)
			version, err := database.RunMigrations(a.cfg.TokenDatabaseURL)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			a.logger.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
			a.printf("token store schema at version %d\n", version)
			return nil
		},
	}
}

func (a *App) mockServerCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:         "mock-server",
		Short:       "Run the in-memory mock backend for local development",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serveMock(ctx, ":"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", a.cfg.MockServerPort, "listen port")
	return cmd
}

// serveMock はctxがキャンセルされるまでモックバックエンドを提供し、グレースフルシャットダウンする。
func (a *App) serveMock(ctx context.Context, addr string) error {
	mock := mockserver.New(mockserver.Config{
		JWTSecret: a.cfg.MockJWTSecret,
		TokenTTL:  a.cfg.MockTokenTTL,
		Logger:    a.logger,
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:      mock.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("mock server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.printf("mock backend listening on http://%s\n", ln.Addr().String())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mock server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down mock server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.logger.Info("mock server stopped gracefully")
	return nil
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the client version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.emit(map[string]string{"version": Version}, func() error {
				a.printf("skillshare %s\n", Version)
				return nil
			})
		},
	}
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
