// Package resource はAPIクライアントの呼び出しを包む再利用可能なデータ取得の抽象を提供する。
//
// 画面（CLIコマンド）は「何を」「いつ」取得するかだけを宣言し、
// 読み込み中・エラー・再取得の状態管理はLoaderとPagerが受け持つ。
package resource

import (
	"context"
	"sync"
	"time"
)

// FetchFunc は1つのリソースを取得する関数。
type FetchFunc[T any] func(ctx context.Context) (T, error)

// State はLoaderの現在の状態のスナップショット。
type State[T any] struct {
	Data     T
	Err      error
	Loading  bool
	LoadedAt time.Time // 最後に成功した時刻。未取得の場合はゼロ値
}

// Loader は単一リソースの取得と再取得を管理する。ゴルーチンセーフ。
// エラー（Unauthorizedを含む）は加工せずにそのまま返す。
type Loader[T any] struct {
	fetch FetchFunc[T]
	now   func() time.Time

	mu    sync.Mutex
	state State[T]
}

// NewLoader はfetchを使うLoaderを生成する。
func NewLoader[T any](fetch FetchFunc[T]) *Loader[T] {
	return &Loader[T]{fetch: fetch, now: time.Now}
}

// Refetch はリソースを取得する。呼び出しのたびにバックエンドへ問い合わせ、
// 取得済みのDataを返すことはない。
// 失敗した場合、直前に取得できたDataは状態として保持したままErrを設定する。
func (l *Loader[T]) Refetch(ctx context.Context) (T, error) {
	l.mu.Lock()
	l.state.Loading = true
	l.mu.Unlock()

	data, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Loading = false
	l.state.Err = err
	if err != nil {
		var zero T
		return zero, err
	}
	l.state.Data = data
	l.state.LoadedAt = l.now()
	return data, nil
}

// State は現在の状態を返す。
func (l *Loader[T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Refetcher は再取得できるリソース。LoaderとPagerが満たす。
type Refetcher interface {
	refetch(ctx context.Context) error
}

func (l *Loader[T]) refetch(ctx context.Context) error {
	_, err := l.Refetch(ctx)
	return err
}

// Mutate は変更操作を実行し、成功した場合にrを再取得する。
// 変更操作の結果を返す。再取得の失敗は変更操作の成功を取り消さないが、エラーとして返す。
func Mutate[R any](ctx context.Context, r Refetcher, fn func(ctx context.Context) (R, error)) (R, error) {
	res, err := fn(ctx)
	if err != nil {
		return res, err
	}
	if r == nil {
		return res, nil
	}
	if err := r.refetch(ctx); err != nil {
		return res, &RefetchError{Err: err}
	}
	return res, nil
}

// RefetchError は変更操作は成功したが再取得に失敗したことを表す。
type RefetchError struct {
	Err error
}

func (e *RefetchError) Error() string {
	return "refetch after mutation failed: " + e.Err.Error()
}

func (e *RefetchError) Unwrap() error {
	return e.Err
}
