package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/contentplan/internal/live"
	"github.com/hitoshi/contentplan/internal/metrics"
	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
	"github.com/hitoshi/contentplan/internal/web"
)

// healthCheckTimeout はヘルスチェックでDBへの疎通を待つ上限。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はヘルスチェックに必要なインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 画面
	Renderer *Renderer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// アカウント
	AccountService AccountServiceInterface

	// コンテンツとプロジェクト
	ContentService ContentServiceInterface
	ViewService    ViewServiceInterface
	ProjectService ProjectServiceInterface

	// ライブ購読
	ItemFeed    *live.Feed[model.ContentItem]
	ProjectFeed *live.Feed[model.Project]

	// 運用エンドポイント（nilの場合は登録しない）
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は画面・API・運用エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS → CSRF → Session → RateLimit
//
// /health と /metrics と静的ファイルはCSRFとセッションの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CSRFConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Renderer, deps.AuthConfig)
	accountHandler := NewAccountHandler(deps.AccountService, deps.Renderer, deps.AuthConfig)
	contentHandler := NewContentHandler(deps.ContentService, deps.ViewService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	pageHandler := NewPageHandler(deps.Renderer, deps.ViewService, deps.ProjectService)
	streamHandler := NewStreamHandler(deps.ItemFeed, deps.ProjectFeed)

	// --- 運用エンドポイント ---
	if deps.HealthChecker != nil {
		r.Get("/health", healthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// --- 認証不要の画面 ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
			r.Get("/", pageHandler.Landing)
			r.Get("/auth", authHandler.Page)
		})

		// 認証ルート。パスワード試行はIP単位の厳しいレート制限を掛ける
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/auth/signin", authHandler.SignIn)
			r.Post("/auth/register", authHandler.Register)
		})
		r.Get("/auth/google/login", authHandler.GoogleLogin)
		r.Get("/auth/google/callback", authHandler.GoogleCallback)
		r.Post("/auth/logout", authHandler.Logout)
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// --- ログインが必要な画面 ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewPageSessionMiddleware(deps.SessionFinder, "/auth"))
			r.Get("/app", pageHandler.App)
			r.Get("/projects", pageHandler.Projects)
			r.Post("/projects", pageHandler.CreateProject)
			r.Get("/account", accountHandler.Page)
			r.Post("/account/delete", accountHandler.Delete)
		})

		// --- ログインが必要なAPI ---
		// ミドルウェアスタック: Session → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/api/me", authHandler.Me)
			r.Get("/api/stream", streamHandler.Stream)

			r.Route("/api/items", func(r chi.Router) {
				r.Get("/", contentHandler.ListItems)
				r.Post("/", contentHandler.CreateItem)

				r.Route("/{id}", func(r chi.Router) {
					r.Delete("/", contentHandler.DeleteItem)
					r.Put("/status", contentHandler.UpdateStatus)
					r.Post("/drop", contentHandler.DropItem)
				})
			})

			r.Get("/api/calendar", contentHandler.Calendar)
			r.Get("/api/kanban", contentHandler.Kanban)

			r.Route("/api/projects", func(r chi.Router) {
				r.Get("/", projectHandler.ListProjects)
				r.Post("/", projectHandler.CreateProject)
			})
		})
	})

	return r
}

// healthHandler はDBへの疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
