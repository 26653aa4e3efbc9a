// Package web は画面テンプレートと静的ファイルを埋め込みで提供する。
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates はHTMLテンプレートのファイルシステムを返す。パスは "templates/xxx.html"。
func Templates() fs.FS {
	return templateFS
}

// Static は /static 配下で配信するファイルシステムを返す。
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// 埋め込みディレクトリが存在する限り起こらない
		panic(err)
	}
	return sub
}
