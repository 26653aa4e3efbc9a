// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTopicRequired       = "TOPIC_REQUIRED"
	ErrCodeProjectNameRequired = "PROJECT_NAME_REQUIRED"
	ErrCodeInvalidPlatform     = "INVALID_PLATFORM"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeInvalidDate         = "INVALID_DATE"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeInvalidFilter       = "INVALID_FILTER"
	ErrCodeInvalidMonth        = "INVALID_MONTH"
	ErrCodeDeleteNotConfirmed  = "DELETE_NOT_CONFIRMED"
	ErrCodeItemNotFound        = "ITEM_NOT_FOUND"
	ErrCodeProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeSaveFailed          = "SAVE_FAILED"
	ErrCodeStatusUpdateFailed  = "STATUS_UPDATE_FAILED"
	ErrCodeDeleteFailed        = "DELETE_FAILED"
	ErrCodeProjectCreateFailed = "PROJECT_CREATE_FAILED"
	ErrCodeSignOutFailed       = "SIGN_OUT_FAILED"
	ErrCodeAccountDeleteFailed = "ACCOUNT_DELETE_FAILED"
	ErrCodeAuthFailed          = "AUTH_FAILED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeCSRFFailed          = "CSRF_FAILED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewTopicRequiredError はトピック未入力エラーを生成する。
func NewTopicRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTopicRequired,
		Message:  "Тема Поста не может быть пустой",
		Category: "validation",
		Action:   "Введите тему поста.",
	}
}

// NewProjectNameRequiredError はプロジェクト名未入力エラーを生成する。
func NewProjectNameRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeProjectNameRequired,
		Message:  "Название проекта не может быть пустым",
		Category: "validation",
		Action:   "Введите название проекта.",
	}
}

// NewInvalidPlatformError は未定義のプラットフォームが指定された場合のエラーを生成する。
func NewInvalidPlatformError(platform string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPlatform,
		Message:  fmt.Sprintf("Неизвестная платформа: %s", platform),
		Category: "validation",
		Action:   "Выберите Instagram, Telegram, YouTube, VK или TikTok.",
	}
}

// NewInvalidStatusError は未定義のステータスが指定された場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Неизвестный статус: %s", status),
		Category: "validation",
		Action:   "Выберите статус из списка.",
	}
}

// NewInvalidDateError は日付形式が不正な場合のエラーを生成する。
func NewInvalidDateError(date string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("Неверная дата: %s", date),
		Category: "validation",
		Action:   "Укажите дату в формате ГГГГ-ММ-ДД.",
	}
}

// NewInvalidURLError はリンクが不正な場合のエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("Неверная ссылка: %s", reason),
		Category: "validation",
		Action:   "Укажите ссылку, начинающуюся с http:// или https://.",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("Неверный фильтр: %s", filter),
		Category: "validation",
		Action:   "Нажмите «Сбросить», чтобы вернуть фильтры по умолчанию.",
	}
}

// NewInvalidMonthError はカレンダーの月指定が不正な場合のエラーを生成する。
func NewInvalidMonthError(month string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMonth,
		Message:  fmt.Sprintf("Неверный месяц: %s", month),
		Category: "validation",
		Action:   "Укажите месяц в формате ГГГГ-ММ.",
	}
}

// NewDeleteNotConfirmedError は削除確認なしで削除が要求された場合のエラーを生成する。
func NewDeleteNotConfirmedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeleteNotConfirmed,
		Message:  "Удаление не подтверждено.",
		Category: "validation",
		Action:   "Подтвердите удаление поста.",
	}
}

// NewAccountDeleteNotConfirmedError はアカウント削除の確認がない場合のエラーを生成する。
func NewAccountDeleteNotConfirmedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeleteNotConfirmed,
		Message:  "Удаление не подтверждено.",
		Category: "validation",
		Action:   "Отметьте, что понимаете: все посты и проекты будут удалены.",
	}
}

// NewAccountDeleteFailedError はアカウント削除に失敗した場合のエラーを生成する。
func NewAccountDeleteFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountDeleteFailed,
		Message:  "Не удалось удалить аккаунт!",
		Category: "system",
		Action:   "Попробуйте ещё раз позже.",
	}
}

// NewItemNotFoundError はコンテンツ未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("Пост не найден: %s", itemID),
		Category: "content",
		Action:   "Обновите страницу.",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("Проект не найден: %s", projectID),
		Category: "content",
		Action:   "Выберите существующий проект.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Пользователь не найден.",
		Category: "auth",
		Action:   "Войдите снова.",
	}
}

// 以下は書き込み失敗時の汎用メッセージ。原因はログにのみ出力する。

// NewSaveFailedError はコンテンツ保存失敗エラーを生成する。
func NewSaveFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSaveFailed,
		Message:  "Ошибка при сохранении поста!",
		Category: "system",
		Action:   "Попробуйте ещё раз позже.",
	}
}

// NewStatusUpdateFailedError はステータス更新失敗エラーを生成する。
func NewStatusUpdateFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeStatusUpdateFailed,
		Message:  "Ошибка при обновлении статуса!",
		Category: "system",
		Action:   "Попробуйте ещё раз позже.",
	}
}

// NewDeleteFailedError はコンテンツ削除失敗エラーを生成する。
func NewDeleteFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeleteFailed,
		Message:  "Ошибка при удалении поста!",
		Category: "system",
		Action:   "Попробуйте ещё раз позже.",
	}
}

// NewProjectCreateFailedError はプロジェクト作成失敗エラーを生成する。
func NewProjectCreateFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeProjectCreateFailed,
		Message:  "Ошибка при создании проекта!",
		Category: "system",
		Action:   "Попробуйте ещё раз позже.",
	}
}

// NewSignOutFailedError はログアウト失敗エラーを生成する。
func NewSignOutFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSignOutFailed,
		Message:  "Не удалось выйти из аккаунта.",
		Category: "auth",
		Action:   "Попробуйте ещё раз.",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Требуется вход в аккаунт.",
		Category: "auth",
		Action:   "Войдите снова.",
	}
}

// NewCSRFFailedError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "Сессия формы устарела.",
		Category: "auth",
		Action:   "Обновите страницу и повторите действие.",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Слишком много запросов.",
		Category: "system",
		Action:   "Подождите немного и попробуйте снова.",
	}
}

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Некорректный запрос.",
		Category: "validation",
		Action:   "Проверьте введённые данные.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ出力する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Произошла внутренняя ошибка.",
		Category: "system",
		Action:   "Попробуйте ещё раз позже.",
	}
}
