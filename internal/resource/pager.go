package resource

import (
	"context"
	"sync"

	"github.com/hitoshi/skillshare/internal/model"
)

// DefaultPageSize はPagerのデフォルトのページサイズ。
const DefaultPageSize = 10

// PageFunc はページ番号とサイズを受け取ってページを取得する関数。
type PageFunc[T any] func(ctx context.Context, page, size int) (*model.Page[T], error)

// Pager はページネーションされたコレクションを順に読み進める。ゴルーチンセーフ。
// 取得済みのページの要素はItemsに蓄積される。
type Pager[T any] struct {
	fetch PageFunc[T]
	size  int

	mu      sync.Mutex
	current *model.Page[T]
	items   []T
	pages   int // 読み込んだページ数
	err     error
}

// NewPager はfetchを使うPagerを生成する。sizeが0以下の場合はDefaultPageSize。
func NewPager[T any](fetch PageFunc[T], size int) *Pager[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager[T]{fetch: fetch, size: size}
}

// First は蓄積をリセットして最初のページを取得する。
func (p *Pager[T]) First(ctx context.Context) (*model.Page[T], error) {
	page, err := p.fetch(ctx, 0, p.size)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	if err != nil {
		return nil, err
	}
	p.current = page
	p.items = append([]T{}, page.Content...)
	p.pages = 1
	return page, nil
}

// Next は次のページを取得して蓄積に追加する。未取得の場合はFirstと同じ。
// 最後のページを読み終えている場合は(nil, nil)を返す。
func (p *Pager[T]) Next(ctx context.Context) (*model.Page[T], error) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return p.First(ctx)
	}
	if !p.current.HasNext() {
		p.mu.Unlock()
		return nil, nil
	}
	next := p.current.Number + 1
	p.mu.Unlock()

	page, err := p.fetch(ctx, next, p.size)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	if err != nil {
		return nil, err
	}
	p.current = page
	p.items = append(p.items, page.Content...)
	p.pages++
	return page, nil
}

// HasNext は次のページがあるかどうかを返す。未取得の場合はtrue。
func (p *Pager[T]) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == nil || p.current.HasNext()
}

// Refetch は読み込み済みの範囲を先頭から取得し直す。
// 変更操作の後に呼び、削除や追加を反映する。
func (p *Pager[T]) Refetch(ctx context.Context) error {
	p.mu.Lock()
	pages := p.pages
	p.mu.Unlock()
	if pages == 0 {
		pages = 1
	}

	var items []T
	var last *model.Page[T]
	for i := 0; i < pages; i++ {
		page, err := p.fetch(ctx, i, p.size)
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			return err
		}
		items = append(items, page.Content...)
		last = page
		if !page.HasNext() {
			pages = i + 1
			break
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = last
	p.items = items
	p.pages = pages
	p.err = nil
	return nil
}

func (p *Pager[T]) refetch(ctx context.Context) error {
	return p.Refetch(ctx)
}

// Items は蓄積された要素のコピーを返す。
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T{}, p.items...)
}

// Current は最後に取得したページを返す。
func (p *Pager[T]) Current() *model.Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Err は最後の取得で発生したエラーを返す。
func (p *Pager[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
