// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MarkupGuard は商品フォームの自由記述欄にHTMLマークアップが含まれていないかを判定する。
// 自由記述欄は入力されたとおりに保存し、マークアップを含む入力は書き換えずに拒否する。
// ImageURLGuard は商品画像URLの静的な検証と、SSRF防止付きHTTPクライアントの生成を行う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MarkupGuard はマークアップ判定のインターフェースを定義する。
type MarkupGuard interface {
	// ContainsMarkup はテキストにHTML要素として解釈される部分があればtrueを返す。
	ContainsMarkup(text string) bool
}

// markupGuard はMarkupGuardの実装。
// bluemondayのStrictPolicyは全ての要素を除去するため、
// 除去前後でテキストが変わればマークアップを含むと判定する。
type markupGuard struct {
	policy *bluemonday.Policy
}

// NewMarkupGuard はMarkupGuardの新しいインスタンスを生成する。
func NewMarkupGuard() *markupGuard {
	return &markupGuard{
		policy: bluemonday.StrictPolicy(),
	}
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ContainsMarkup は判定のみを行い、テキストは変更しない。
// 文字実体参照（&lt;b&gt; など）はテキストとして扱う。
func (g *markupGuard) ContainsMarkup(text string) bool {
	if !strings.Contains(text, "<") {
		return false
	}
	text = newlineReplacer.Replace(text)
	stripped := html.UnescapeString(g.policy.Sanitize(text))
	return stripped != html.UnescapeString(text)
}
