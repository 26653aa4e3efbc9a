package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func csrfCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			return c
		}
	}
	t.Fatal("csrf cookie was not set")
	return nil
}

func TestCSRFMiddleware_SafeMethodSetsCookieAndContext(t *testing.T) {
	var fromCtx string
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = CSRFTokenFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))

	cookie := csrfCookieFrom(t, w)
	assert.Len(t, cookie.Value, 64)
	assert.False(t, cookie.HttpOnly)
	assert.Equal(t, cookie.Value, fromCtx)
}

func TestCSRFMiddleware_SafeMethodKeepsExistingCookie(t *testing.T) {
	var fromCtx string
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = CSRFTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, "existing", fromCtx)
}

func TestCSRFMiddleware_StateChangingRequests(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		form   string
		want   int
	}{
		{name: "ヘッダー一致", cookie: "tok", header: "tok", want: http.StatusOK},
		{name: "フォームフィールド一致", cookie: "tok", form: "tok", want: http.StatusOK},
		{name: "Cookieなし", header: "tok", want: http.StatusForbidden},
		{name: "送信トークンなし", cookie: "tok", want: http.StatusForbidden},
		{name: "不一致", cookie: "tok", header: "other", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.form != "" {
				body = strings.NewReader(url.Values{CSRFFormField: {tt.form}}.Encode())
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(http.MethodPost, "/api/items", body)
			if tt.form != "" {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}

			w := httptest.NewRecorder()
			NewCSRFMiddleware(CSRFConfig{})(okHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "CSRF_FAILED")
			}
		})
	}
}

func TestCSRFTokenHandler(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{CookieSecure: true})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	cookie := csrfCookieFrom(t, w)
	assert.Equal(t, cookie.Value, body["token"])
	assert.True(t, cookie.Secure)

	// 既存トークンはそのまま返す
	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "existing", body["token"])
}
