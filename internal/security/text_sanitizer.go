// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はAIが生成した投稿素材をプレーンテキストとして
// 無害化する。生成モデルのレスポンスは信頼できない入力として扱い、
// HTMLタグやスクリプトが紛れ込んでいても保存前に除去する。
// bluemondayのStrictPolicyで全タグを除去したうえでエンティティを展開する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキスト無害化機能のインターフェースを定義する。
// 生成された投稿素材の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
	// エンティティ（&amp;等）は元の文字に展開される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフに無害化処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 投稿本文はFacebookフィードにプレーンテキストとして送られるため、
// タグを一切許可しないStrictPolicyを使用する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
