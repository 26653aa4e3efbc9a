// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力した自由記述（トピック、プロジェクト名・説明）から
// HTMLを取り除き、テンプレート描画時に二重エスケープされないプレーンテキストに変換する。
package security

import (
	"errors"
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は全てのタグを除去し、前後の空白を取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないポリシーでTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	// StrictPolicyはエンティティをエスケープして返すため、描画側に任せるよう元に戻す
	cleaned := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.TrimSpace(cleaned)
}

var (
	errLinkScheme = errors.New("разрешены только ссылки http и https")
	errLinkHost   = errors.New("в ссылке отсутствует домен")
)

// NormalizeLink はコンテンツのリンクを検証し正規化する。
// 空文字列はリンクなしとしてそのまま返す。http/https以外のスキームは拒否する。
func NormalizeLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", errLinkScheme
	}
	if u.Host == "" {
		return "", errLinkHost
	}
	return u.String(), nil
}
