// contentplan はコンテンツ計画Webサービスのエントリーポイント。
//
//	contentplan [serve]      Webサーバーを起動する
//	contentplan worker       期限切れセッションを定期削除する
//	contentplan migrate      マイグレーションを適用する
//	contentplan healthcheck  /health を叩いて終了コードで結果を返す
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/contentplan/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
