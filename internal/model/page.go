package model

import "encoding/json"

// Page はページネーションされたコレクションのレスポンスエンベロープ。
// バックエンドはcontentに加えてページ番号・件数のメタデータを返す。
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

// UnmarshalJSON はcontentが欠落またはnullの場合に空スライスを補う。
// "page"キーで返すバックエンドにも対応する。
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content       []T   `json:"content"`
		Number        *int  `json:"number"`
		Page          *int  `json:"page"`
		Size          int   `json:"size"`
		TotalElements int64 `json:"totalElements"`
		TotalPages    int   `json:"totalPages"`
		Last          *bool `json:"last"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Content = raw.Content
	if p.Content == nil {
		p.Content = []T{}
	}
	switch {
	case raw.Number != nil:
		p.Number = *raw.Number
	case raw.Page != nil:
		p.Number = *raw.Page
	default:
		p.Number = 0
	}
	p.Size = raw.Size
	p.TotalElements = raw.TotalElements
	p.TotalPages = raw.TotalPages
	if raw.Last != nil {
		p.Last = *raw.Last
	} else {
		p.Last = p.TotalPages == 0 || p.Number >= p.TotalPages-1
	}
	return nil
}

// HasNext は次のページが存在するかどうかを返す。
func (p *Page[T]) HasNext() bool {
	return !p.Last
}
