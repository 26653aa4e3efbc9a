package security

import (
	"testing"
)

func TestSanitize_StripsMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "Обзор новых кроссовок", want: "Обзор новых кроссовок"},
		{name: "scriptタグは中身ごと除去される", input: `Пост<script>alert(1)</script>`, want: "Пост"},
		{name: "装飾タグは除去されテキストが残る", input: "<b>Важно</b> анонс", want: "Важно анонс"},
		{name: "アンパサンドは二重エスケープされない", input: "Q&A сессия", want: "Q&A сессия"},
		{name: "前後の空白は除去される", input: "   \t ", want: ""},
		{name: "空文字列", input: "", want: ""},
		{name: "イベント属性付きタグ", input: `<img src=x onerror=alert(1)>Фото`, want: "Фото"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	inputs := []string{"<p>a & b</p>", "x < y", "  <i>тема</i>  "}
	for _, in := range inputs {
		once := sanitizer.Sanitize(in)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize is not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeLink(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "空はリンクなし", input: "", want: ""},
		{name: "https", input: "https://t.me/channel/42", want: "https://t.me/channel/42"},
		{name: "http", input: " http://vk.com/wall1 ", want: "http://vk.com/wall1"},
		{name: "javascriptスキームは拒否", input: "javascript:alert(1)", wantErr: true},
		{name: "スキームなしは拒否", input: "youtube.com/watch", wantErr: true},
		{name: "ホストなしは拒否", input: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeLink(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeLink(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeLink(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeLink(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
