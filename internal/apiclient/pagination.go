package apiclient

import (
	"net/url"
	"strconv"
)

// ページネーションのデフォルト値。
const (
	DefaultPage = 0
	DefaultSize = 10
)

// Pagination は一覧取得のページ指定。ゼロ値は(0, 10)として送信される。
type Pagination struct {
	Page int
	Size int
}

// Normalize は負のページ番号と0以下のサイズをデフォルトに置き換える。
func (p Pagination) Normalize() Pagination {
	if p.Page < 0 {
		p.Page = DefaultPage
	}
	if p.Size <= 0 {
		p.Size = DefaultSize
	}
	return p
}

// Query はpage, sizeのクエリパラメータを返す。
func (p Pagination) Query() url.Values {
	n := p.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(n.Page))
	q.Set("size", strconv.Itoa(n.Size))
	return q
}
