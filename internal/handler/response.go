// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/contentplan/internal/middleware"
	"github.com/hitoshi/contentplan/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// decodeJSON はリクエストボディをvにデコードする。未知のフィールドは拒否する。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// requireUserID はコンテキストからユーザーIDを取り出す。取得できなければ401を書き込む。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(err, apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 認証エラーは失敗コードごとに分ける。
func mapAPIErrorToHTTPStatus(err error, apiErr *model.APIError) int {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		return mapAuthCodeToHTTPStatus(authErr.AuthCode)
	}

	switch apiErr.Code {
	case model.ErrCodeTopicRequired,
		model.ErrCodeProjectNameRequired,
		model.ErrCodeInvalidPlatform,
		model.ErrCodeInvalidStatus,
		model.ErrCodeInvalidDate,
		model.ErrCodeInvalidURL,
		model.ErrCodeInvalidFilter,
		model.ErrCodeInvalidMonth,
		model.ErrCodeDeleteNotConfirmed,
		model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeItemNotFound, model.ErrCodeProjectNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthorized, model.ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case model.ErrCodeCSRFFailed:
		return http.StatusForbidden
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// mapAuthCodeToHTTPStatus は認証失敗コードからHTTPステータスコードにマッピングする。
func mapAuthCodeToHTTPStatus(code model.AuthCode) int {
	switch code {
	case model.AuthInvalidEmail, model.AuthWeakPassword, model.AuthPasswordTooLong:
		return http.StatusBadRequest
	case model.AuthEmailAlreadyInUse:
		return http.StatusConflict
	default:
		return http.StatusUnauthorized
	}
}
