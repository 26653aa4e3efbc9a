package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hitoshi/contentplan/internal/config"
	"github.com/spf13/cobra"
)

// Version はビルド時に -ldflags で上書きされる。
var Version = "dev"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモード。サブコマンド省略時もこれで起動する。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションを削除するワーカーモード。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はdistroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// configuredRun は設定とロガーを初期化してから実行するコマンド本体。
type configuredRun func(ctx context.Context, cfg *config.Config, log *slog.Logger) error

// withConfig はInitを済ませてからfnを呼ぶcobraのRunEを返す。
func withConfig(out io.Writer, name Command, fn configuredRun) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := Init(out)
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}
		log.Info("starting application",
			slog.String("command", string(name)),
			slog.String("version", Version),
			slog.String("port", cfg.ServerPort),
			slog.String("base_url", cfg.BaseURL),
		)
		return fn(cmd.Context(), cfg, log)
	}
}

// NewRootCommand はcontentplanのコマンドツリーを生成する。ログはoutへ出力する。
func NewRootCommand(out io.Writer) *cobra.Command {
	serve := withConfig(out, CommandServe, runServe)

	root := &cobra.Command{
		Use:           "contentplan",
		Short:         "Content planning web service",
		Long:          "Plan posts across platforms in list, calendar and kanban views with live updates.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	root.AddCommand(&cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   string(CommandWorker),
		Short: "Periodically delete expired sessions",
		Args:  cobra.NoArgs,
		RunE:  withConfig(out, CommandWorker, runWorker),
	})

	var rollback int
	migrateCmd := &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: withConfig(out, CommandMigrate, func(_ context.Context, cfg *config.Config, log *slog.Logger) error {
			return runMigrate(cfg, log, rollback)
		}),
	}
	migrateCmd.Flags().IntVar(&rollback, "rollback", 0, "roll back the given number of migrations instead of applying")
	root.AddCommand(migrateCmd)

	// healthcheck は軽量サブコマンドのため、設定の読み込みをスキップする
	var healthURL string
	health := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe the /health endpoint of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd.Context(), healthURL)
		},
	}
	health.Flags().StringVar(&healthURL, "url", defaultHealthURL(), "health endpoint to probe")
	root.AddCommand(health)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "contentplan %s\n", Version)
		},
	})

	return root
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port + "/health"
}

// Run はargsを解析して対応するコマンドを実行する。argsにはos.Args[1:]を渡す。
// SIGINTまたはSIGTERMを受信するとコマンドのコンテキストがキャンセルされる。
func Run(out io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
