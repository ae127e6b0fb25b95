// Package middleware はAPIクライアントのリクエストパイプラインを構成するミドルウェアを提供する。
//
// 各ミドルウェアは func(next Doer) Doer の形をとり、クライアント生成時に1回だけ合成される。
// リクエスト変換（ヘッダー付与など）はnext呼び出し前に、
// レスポンス変換（401処理など）はnext呼び出し後に行う。
package middleware

import "net/http"

// Doer はHTTPリクエストを実行するインターフェース。*http.Clientが満たす。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc は関数をDoerとして扱うためのアダプタ。
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do はf(req)を呼び出す。
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware はDoerをラップして振る舞いを追加する。
type Middleware func(next Doer) Doer

// Chain はミドルウェアをbaseに合成したDoerを返す。
// mwsの先頭が最も外側（最初にリクエストを受け取る）になる。
func Chain(base Doer, mws ...Middleware) Doer {
	d := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		d = mws[i](d)
	}
	return d
}
