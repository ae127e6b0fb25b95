// Package watch は未読通知のポーリングを提供する。
// 一定間隔で未読件数を確認し、新着通知をハンドラーへ渡す。
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/skillshare/internal/apiclient"
	"github.com/hitoshi/skillshare/internal/model"
)

const (
	defaultInterval = 30 * time.Second
	defaultPageSize = 20
)

// NotificationSource は通知の取得インターフェース。
type NotificationSource interface {
	GetUnreadCount(ctx context.Context) (int64, error)
	GetAll(ctx context.Context, p apiclient.Pagination) (*model.Page[model.Notification], error)
}

// MetricsRecorder は新着通知の件数を記録するインターフェース。
type MetricsRecorder interface {
	RecordNotificationsSeen(count int)
}

// Handler は新着通知ごとに呼ばれる関数。
type Handler func(model.Notification)

// Watcher は未読通知のポーリングを行う。
// 同じ通知は一度だけハンドラーに渡す。
type Watcher struct {
	source   NotificationSource
	handler  Handler
	metrics  MetricsRecorder
	logger   *slog.Logger
	pageSize int

	mu        sync.Mutex
	seen      map[int64]struct{}
	lastCount int64
	primed    bool
}

// NewWatcher はWatcherの新しいインスタンスを生成する。metricsはnilでもよい。
func NewWatcher(source NotificationSource, handler Handler, metrics MetricsRecorder, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		source:   source,
		handler:  handler,
		metrics:  metrics,
		logger:   logger,
		pageSize: defaultPageSize,
		seen:     make(map[int64]struct{}),
	}
}

// Start は指定間隔のティッカーでポーリングを開始する。
// コンテキストがキャンセルされるとnilを返す。
// セッションが失効した場合はそれ以上ポーリングせずにそのエラーを返す。
func (w *Watcher) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("通知ウォッチャーを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := w.poll(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("通知ウォッチャーを停止しました")
			return nil
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				return err
			}
		}
	}
}

// poll はRunOnceを実行し、継続できないエラーのみを返す。
func (w *Watcher) poll(ctx context.Context) error {
	_, err := w.RunOnce(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrUnauthorized) {
		w.logger.Warn("セッションが失効したため通知ウォッチャーを停止します")
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	w.logger.Error("通知の確認に失敗しました",
		slog.String("error", err.Error()),
	)
	return nil
}

// RunOnce は未読件数を1回確認し、変化があれば新着通知をハンドラーへ渡す。
// 渡した通知の件数を返す。
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	count, err := w.source.GetUnreadCount(ctx)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	unchanged := w.primed && count == w.lastCount
	w.mu.Unlock()

	if count == 0 {
		w.mu.Lock()
		w.lastCount = 0
		w.primed = true
		w.seen = make(map[int64]struct{})
		w.mu.Unlock()
		return 0, nil
	}
	if unchanged {
		return 0, nil
	}

	page, err := w.source.GetAll(ctx, apiclient.Pagination{Page: 0, Size: w.pageSize})
	if err != nil {
		return 0, err
	}

	fresh := w.collectFresh(page.Content, count)
	for _, n := range fresh {
		if w.handler != nil {
			w.handler(n)
		}
	}

	if len(fresh) > 0 {
		w.logger.Info("新着通知を検出しました",
			slog.Int("count", len(fresh)),
			slog.Int64("unread", count),
		)
	}
	if w.metrics != nil {
		w.metrics.RecordNotificationsSeen(len(fresh))
	}

	return len(fresh), nil
}

// collectFresh は未通知の未読通知を古い順に返し、既読状態を更新する。
// バックエンドは新しい順に返すため、末尾から走査する。
func (w *Watcher) collectFresh(items []model.Notification, count int64) []model.Notification {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[int64]struct{}, len(items))
	var fresh []model.Notification
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		if n.Read {
			continue
		}
		next[n.ID] = struct{}{}
		if _, ok := w.seen[n.ID]; ok {
			continue
		}
		fresh = append(fresh, n)
	}

	w.seen = next
	w.lastCount = count
	w.primed = true
	return fresh
}
