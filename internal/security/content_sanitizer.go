package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はバックエンドから受け取ったユーザー投稿のテキストを
// 端末に表示できる平文に変換する。
type TextSanitizer interface {
	// Sanitize はHTMLタグを全て除去し、エンティティを復元した平文を返す。
	// 制御文字（改行とタブを除く）も除去する。
	Sanitize(raw string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないbluemondayポリシーでTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLを平文に変換する。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.TrimSpace(strings.Map(dropControl, stripped))
}

// dropControl は端末のエスケープシーケンスに使われる制御文字を除去する。
func dropControl(r rune) rune {
	if r == '\n' || r == '\t' {
		return r
	}
	if r < 0x20 || r == 0x7f {
		return -1
	}
	return r
}
