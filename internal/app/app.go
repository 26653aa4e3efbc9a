// Package app はコマンドの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/contentplan/internal/auth"
	"github.com/hitoshi/contentplan/internal/config"
	"github.com/hitoshi/contentplan/internal/content"
	"github.com/hitoshi/contentplan/internal/database"
	"github.com/hitoshi/contentplan/internal/handler"
	"github.com/hitoshi/contentplan/internal/live"
	"github.com/hitoshi/contentplan/internal/logger"
	"github.com/hitoshi/contentplan/internal/metrics"
	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/repository"
	"github.com/hitoshi/contentplan/internal/security"
	"github.com/hitoshi/contentplan/internal/user"
	"github.com/hitoshi/contentplan/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 30 * time.Second
	dbConnectTimeout   = 10 * time.Second
	healthcheckTimeout = 5 * time.Second
)

// Init は環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// 設定の読み込みに失敗した場合もエラーを出力できるよう、先にInfoレベルで初期化しておく。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel)), nil
}

// openDatabase は設定のプール上限でDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return database.Connect(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, dbConnectTimeout)
}

// serverDeps はHTTPハンドラーの構築に必要な外部リソース。
type serverDeps struct {
	DB       *sql.DB
	Notifier live.Notifier
	Registry *prometheus.Registry
	Limiter  *middleware.RateLimiter
	Logger   *slog.Logger
}

// newHandler はリポジトリからルーターまでを組み立てる。
func newHandler(cfg *config.Config, deps serverDeps) (http.Handler, error) {
	collector := metrics.NewCollector(deps.Registry)

	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(deps.DB)
	identRepo := repository.NewPostgresIdentityRepo(deps.DB)
	sessionRepo := repository.NewPostgresSessionRepo(deps.DB)
	itemRepo := repository.NewPostgresContentRepo(deps.DB)
	projectRepo := repository.NewPostgresProjectRepo(deps.DB)

	// ドメインサービス
	var oauth auth.OAuthProvider
	if cfg.GoogleEnabled() {
		oauth = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}
	authService := auth.NewService(oauth, userRepo, identRepo, sessionRepo, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	accountService := user.NewService(userRepo, identRepo, sessionRepo, deps.Logger)
	contentService := content.NewService(itemRepo, projectRepo, security.NewTextSanitizer(), collector, deps.Logger)

	// ライブ購読
	itemFeed := live.NewFeed[model.ContentItem](live.CollectionContent, contentService.List, deps.Notifier, collector, deps.Logger)
	projectFeed := live.NewFeed[model.Project](live.CollectionProjects, contentService.ListProjects, deps.Notifier, collector, deps.Logger)

	renderer, err := handler.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return handler.NewRouter(&handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       deps.Limiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:  deps.Logger,
		Metrics: collector,

		Renderer:    renderer,
		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		AccountService: accountService,

		ContentService: contentService,
		ViewService:    handler.NewViewServiceAdapter(contentService, cfg.Timezone),
		ProjectService: contentService,

		ItemFeed:    itemFeed,
		ProjectFeed: projectFeed,

		HealthChecker:  deps.DB,
		MetricsHandler: metrics.Handler(deps.Registry),
	}), nil
}

// newRegistry はプロセス標準のコレクターを登録したレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はWebサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established")

	notifier, err := live.NewPQNotifier(cfg.DatabaseURL, cfg.LiveMinReconnect, cfg.LiveMaxReconnect, log)
	if err != nil {
		return fmt.Errorf("failed to start change listener: %w", err)
	}
	defer notifier.Close()

	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	defer limiter.Stop()

	router, err := newHandler(cfg, serverDeps{
		DB:       db,
		Notifier: notifier,
		Registry: newRegistry(),
		Limiter:  limiter,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	// SSE接続はShutdownでは閉じられないため、リクエストの親コンテキストを取り消して終了させる
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelRequests)

	// どれか1つが失敗するとgctxが取り消され、残りも停止する
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := notifier.Run(gctx); err != nil {
			return fmt.Errorf("change listener stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("web server stopped gracefully")
		return nil
	})

	return g.Wait()
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除をSESSION_CLEANUP_INTERVALごとに実行する。
func runWorker(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established (worker)")

	log.Info("worker starting", slog.Duration("cleanup_interval", cfg.SessionCleanupInterval))
	cleanup.NewCleanupJob(db, log).Start(ctx, cfg.SessionCleanupInterval)

	log.Info("worker stopped gracefully")
	return nil
}

// runMigrate は未適用のマイグレーションを順番に適用する。
// rollbackが正の場合は適用ではなく、その数だけ新しい順に取り消す。
func runMigrate(cfg *config.Config, log *slog.Logger, rollback int) error {
	if rollback < 0 {
		return fmt.Errorf("rollback must not be negative: %d", rollback)
	}
	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("rollback", rollback),
	)

	status, err := database.Migrate(cfg.DatabaseURL, -rollback, log)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("dirty", status.Dirty),
	)
	return nil
}

// runHealthcheck は/healthにリクエストを送り、200以外ならエラーを返す。
// distroless環境でのDockerヘルスチェック用。
func runHealthcheck(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("invalid health check url: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// maskDatabaseURL はデータベースURLのパスワードを伏せる。解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
