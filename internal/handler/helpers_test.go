package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
)

// --- テストヘルパー ---

// withUserID はリクエストコンテキストにユーザーIDを注入する。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はchiのURLパラメータをリクエストに設定する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v (body=%q)", err, w.Body.String())
	}
	return body
}

func mustRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

// fixedNow はテストで使う「今日」。2024年3月は金曜始まり。
var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func sampleItems() []model.ContentItem {
	return []model.ContentItem{
		{ID: "i1", Date: "2024-03-20", Platform: model.PlatformTelegram, Topic: "Анонс", Status: model.StatusReady},
		{ID: "i2", Date: "2024-03-15", Platform: model.PlatformInstagram, Topic: "Рилс", Status: model.StatusIdea, ProjectID: "p1"},
		{ID: "i3", Date: "2024-02-28", Platform: model.PlatformYouTube, Topic: "Обзор", Status: model.StatusPublished, Link: "https://youtu.be/x"},
	}
}

// --- モック定義 ---

type mockContentService struct {
	mu             sync.Mutex
	createFn       func(ctx context.Context, userID string, in model.NewContentItem) (*model.ContentItem, error)
	updateStatusFn func(ctx context.Context, userID, itemID string, status model.Status) error
	dropFn         func(ctx context.Context, userID, itemID string, target model.Status) (bool, error)
	deleteFn       func(ctx context.Context, userID, itemID string, confirmed bool) error
	calls          int
}

func (m *mockContentService) record() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockContentService) Create(ctx context.Context, userID string, in model.NewContentItem) (*model.ContentItem, error) {
	m.record()
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return &model.ContentItem{ID: "new-item", UserID: userID, Date: in.Date, Platform: in.Platform, Topic: in.Topic, Status: model.StatusIdea}, nil
}

func (m *mockContentService) UpdateStatus(ctx context.Context, userID, itemID string, status model.Status) error {
	m.record()
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, userID, itemID, status)
	}
	return nil
}

func (m *mockContentService) Drop(ctx context.Context, userID, itemID string, target model.Status) (bool, error) {
	m.record()
	if m.dropFn != nil {
		return m.dropFn(ctx, userID, itemID, target)
	}
	return true, nil
}

func (m *mockContentService) Delete(ctx context.Context, userID, itemID string, confirmed bool) error {
	m.record()
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, itemID, confirmed)
	}
	return nil
}

type mockItemLister struct {
	listFn func(ctx context.Context, userID string) ([]model.ContentItem, error)
}

func (m *mockItemLister) List(ctx context.Context, userID string) ([]model.ContentItem, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

// newTestViews は固定の現在時刻で動くViewServiceAdapterを返す。
func newTestViews(items []model.ContentItem, err error) *ViewServiceAdapter {
	views := NewViewServiceAdapter(&mockItemLister{
		listFn: func(ctx context.Context, userID string) ([]model.ContentItem, error) {
			if err != nil {
				return nil, err
			}
			return items, nil
		},
	}, time.UTC)
	views.now = func() time.Time { return fixedNow }
	return views
}

type mockProjectService struct {
	listFn   func(ctx context.Context, userID string) ([]model.Project, error)
	createFn func(ctx context.Context, userID, name, description string) (*model.Project, error)
}

func (m *mockProjectService) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockProjectService) CreateProject(ctx context.Context, userID, name, description string) (*model.Project, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, name, description)
	}
	return &model.Project{ID: "new-project", UserID: userID, Name: name, Description: description, CreatedAt: fixedNow}, nil
}

type mockAuthService struct {
	oauthEnabled     bool
	registerFn       func(ctx context.Context, email, password string) (*model.Session, error)
	signInFn         func(ctx context.Context, email, password string) (*model.Session, error)
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code, providerError string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) OAuthEnabled() bool { return m.oauthEnabled }

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*model.Session, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password)
	}
	return &model.Session{ID: "session-new", UserID: "user-new"}, nil
}

func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return &model.Session{ID: "session-123", UserID: "user-123"}, nil
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code, providerError string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code, providerError)
	}
	return &model.Session{ID: "session-google", UserID: "user-google"}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return &model.User{ID: "user-123", Email: "user@example.com", Name: "User"}, nil
}

type mockAccountService struct {
	profileFn  func(ctx context.Context, userID string) (*model.Account, error)
	withdrawFn func(ctx context.Context, userID string, confirmed bool) error
}

func (m *mockAccountService) Profile(ctx context.Context, userID string) (*model.Account, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, userID)
	}
	return &model.Account{
		User:           &model.User{ID: userID, Email: "user@example.com", Name: "User"},
		Providers:      []string{"google"},
		ActiveSessions: 2,
	}, nil
}

func (m *mockAccountService) Withdraw(ctx context.Context, userID string, confirmed bool) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID, confirmed)
	}
	return nil
}

var (
	_ AccountServiceInterface = (*mockAccountService)(nil)
	_ ContentServiceInterface = (*mockContentService)(nil)
	_ ProjectServiceInterface = (*mockProjectService)(nil)
	_ AuthServiceInterface    = (*mockAuthService)(nil)
)
