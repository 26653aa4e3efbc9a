package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/contentplan/internal/model"
)

// ErrorResponseBody はJSON APIのエラー本文。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse はAPIErrorをJSONで書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteError はリクエストのAcceptに合わせてエラーを書き込む。
// 画面のフォーム送信（text/htmlを優先するブラウザ）にはJSONではなく本文テキストを返す。
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *model.APIError) {
	if !prefersHTML(r) {
		WriteErrorResponse(w, statusCode, apiErr)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Error-Code", apiErr.Code)
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "%s\n%s\n", apiErr.Message, apiErr.Action)
}

// WriteInternalServerError は汎用メッセージの500を返す。詳細は呼び出し側でログに残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// prefersHTML はAcceptでtext/htmlがapplication/jsonより先に現れるかを返す。
// fetchからのAPI呼び出しはAccept未指定か*/*なのでJSONのままになる。
func prefersHTML(r *http.Request) bool {
	if r == nil {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		switch strings.ToLower(mediaType) {
		case "text/html":
			return true
		case "application/json":
			return false
		}
	}
	return false
}
