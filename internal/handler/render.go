package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/contentplan/internal/web"
)

// 画面テンプレート名。各画面はlayoutとpartialsを共有する。
const (
	pageLanding  = "landing"
	pageAuth     = "auth"
	pageApp      = "app"
	pageProjects = "projects"
	pageAccount  = "account"
	pageError    = "error"
)

// Renderer は埋め込みテンプレートから画面を描画する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は全画面のテンプレートを解析してRendererを生成する。
func NewRenderer() (*Renderer, error) {
	names := []string{pageLanding, pageAuth, pageApp, pageProjects, pageAccount, pageError}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.New(name).ParseFS(web.Templates(),
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render は画面全体をレイアウト付きで描画する。
func (r *Renderer) Render(w http.ResponseWriter, statusCode int, page string, data any) {
	r.execute(w, statusCode, page, "layout", data)
}

// RenderFragment は画面の一部（ライブ更新用の断片）だけを描画する。
func (r *Renderer) RenderFragment(w http.ResponseWriter, statusCode int, page, block string, data any) {
	r.execute(w, statusCode, page, block, data)
}

// execute はバッファに描画してから書き込む。途中で失敗した場合は500のみを返す。
func (r *Renderer) execute(w http.ResponseWriter, statusCode int, page, block string, data any) {
	t, ok := r.pages[page]
	if !ok {
		slog.Error("unknown page template", slog.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("block", block),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	buf.WriteTo(w)
}
