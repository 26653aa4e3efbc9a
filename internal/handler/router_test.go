package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/contentplan/internal/live"
	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ルーター用のステートフルモック ---

// memorySessions はセッションIDからユーザーIDを引くインメモリのセッションストア。
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]string{"valid-session": "user-1"}}
}

func (m *memorySessions) FindByID(ctx context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &model.Session{ID: id, UserID: userID}, nil
}

func (m *memorySessions) put(id, userID string) {
	m.mu.Lock()
	m.sessions[id] = userID
	m.mu.Unlock()
}

func (m *memorySessions) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error { return m.err }

type testRouter struct {
	handler  http.Handler
	sessions *memorySessions
	content  *mockContentService
	auth     *mockAuthService
	pinger   *mockPinger
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()

	sessions := newMemorySessions()
	content := &mockContentService{}
	auth := &mockAuthService{}
	pinger := &mockPinger{}
	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	store := &memoryStore{items: sampleItems()}
	broker := live.NewBroker()

	handler := NewRouter(&RouterDeps{
		SessionFinder:     sessions,
		CORSAllowedOrigin: "http://localhost:8080",
		RateLimiter:       limiter,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		Renderer:          mustRenderer(t),
		AuthService:       auth,
		AuthConfig:        AuthHandlerConfig{SessionMaxAge: 3600},
		AccountService:    &mockAccountService{},
		ContentService:    content,
		ViewService:       newTestViews(sampleItems(), nil),
		ProjectService:    testProjects(),
		ItemFeed:          live.NewFeed[model.ContentItem](live.CollectionContent, store.loadItems, broker, nil, nil),
		ProjectFeed:       live.NewFeed[model.Project](live.CollectionProjects, store.loadProjects, broker, nil, nil),
		HealthChecker:     pinger,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		}),
	})

	return &testRouter{handler: handler, sessions: sessions, content: content, auth: auth, pinger: pinger}
}

func (tr *testRouter) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, req)
	return w
}

const testCSRFToken = "test-csrf-token"

// withSession はセッションCookieとCSRFトークン（Cookieとヘッダー）を付与する。
func withSession(req *http.Request, sessionID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionID})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	req.Header.Set("X-CSRF-Token", testCSRFToken)
	return req
}

// --- テスト ---

func TestRouter_Health(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	tr.pinger.err = errors.New("connection refused")
	w = tr.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_MetricsAndStatic(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/static/app.js", "/static/app.css"} {
		w = tr.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_SecurityHeadersOnPages(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	tr := newTestRouter(t)

	apiPaths := []string{"/api/items", "/api/calendar", "/api/kanban", "/api/projects", "/api/me", "/api/stream"}
	for _, path := range apiPaths {
		w := tr.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	for _, path := range []string{"/app", "/projects", "/account"} {
		w := tr.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, "/auth", w.Header().Get("Location"), path)
	}
}

func TestRouter_AuthenticatedReads(t *testing.T) {
	tr := newTestRouter(t)

	for _, path := range []string{"/api/items", "/api/calendar?month=2024-03", "/api/kanban", "/api/projects", "/app", "/app?view=calendar", "/projects", "/account"} {
		w := tr.do(withSession(httptest.NewRequest(http.MethodGet, path, nil), "valid-session"))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_WritesRequireCSRF(t *testing.T) {
	tr := newTestRouter(t)

	req := jsonRequest(http.MethodPost, "/api/items", `{"topic":"x","platform":"VK","date":"2024-03-01"}`)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid-session"})
	w := tr.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, model.ErrCodeCSRFFailed, decodeErrorBody(t, w).Code)
	assert.Equal(t, 0, tr.content.calls)
}

func TestRouter_ItemMutations(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(withSession(jsonRequest(http.MethodPost, "/api/items", `{"topic":"x","platform":"VK","date":"2024-03-01"}`), "valid-session"))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = tr.do(withSession(jsonRequest(http.MethodPut, "/api/items/i1/status", `{"status":"ready"}`), "valid-session"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = tr.do(withSession(jsonRequest(http.MethodPost, "/api/items/i1/drop", `{"status":"ready"}`), "valid-session"))
	assert.Equal(t, http.StatusOK, w.Code)

	var gotID string
	tr.content.deleteFn = func(ctx context.Context, userID, itemID string, confirmed bool) error {
		gotID = itemID
		return nil
	}
	w = tr.do(withSession(httptest.NewRequest(http.MethodDelete, "/api/items/i1?confirm=true", nil), "valid-session"))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "i1", gotID)
}

// TestRouter_SignInFlow はログイン画面からダッシュボード、ログアウトまでの一連の流れを検証する。
func TestRouter_SignInFlow(t *testing.T) {
	tr := newTestRouter(t)
	tr.auth.signInFn = func(ctx context.Context, email, password string) (*model.Session, error) {
		if password != "secret1" {
			return nil, model.NewAuthError(model.AuthWrongPassword)
		}
		tr.sessions.put("flow-session", "user-flow")
		return &model.Session{ID: "flow-session", UserID: "user-flow"}, nil
	}
	tr.auth.logoutFn = func(ctx context.Context, sessionID string) error {
		tr.sessions.remove(sessionID)
		return nil
	}

	// 1. ログイン画面でCSRFトークンを受け取る
	w := tr.do(httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.Equal(t, http.StatusOK, w.Code)
	csrf := findCookie(w.Result(), "csrf_token")
	require.NotNil(t, csrf)
	assert.Contains(t, w.Body.String(), `value="`+csrf.Value+`"`)

	signIn := func(password string) *httptest.ResponseRecorder {
		req := formRequest("/auth/signin", url.Values{
			"email":                  {"flow@example.com"},
			"password":               {password},
			middleware.CSRFFormField: {csrf.Value},
		})
		req.AddCookie(csrf)
		return tr.do(req)
	}

	// 2. パスワード誤り
	w = signIn("wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), model.FriendlyAuthMessage(model.AuthWrongPassword))

	// 3. ログイン成功
	w = signIn("secret1")
	require.Equal(t, http.StatusSeeOther, w.Code)
	session := findCookie(w.Result(), middleware.SessionCookieName)
	require.NotNil(t, session)

	// 4. ダッシュボード
	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(session)
	w = tr.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/auth/logout"`)

	// 5. ログアウト
	req = formRequest("/auth/logout", url.Values{middleware.CSRFFormField: {csrf.Value}})
	req.AddCookie(session)
	req.AddCookie(csrf)
	w = tr.do(req)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	// 6. セッション破棄後はログイン画面へ戻される
	req = httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(session)
	w = tr.do(req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth"))
}
