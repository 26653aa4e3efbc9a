package model

// AuthCode は認証失敗の種別を表す。
type AuthCode string

const (
	AuthInvalidEmail      AuthCode = "invalid-email"
	AuthUserNotFound      AuthCode = "user-not-found"
	AuthWrongPassword     AuthCode = "wrong-password"
	AuthEmailAlreadyInUse AuthCode = "email-already-in-use"
	AuthWeakPassword      AuthCode = "weak-password"
	AuthPasswordTooLong   AuthCode = "password-too-long"
	AuthInvalidCredential AuthCode = "invalid-credential"
	AuthPopupClosedByUser AuthCode = "popup-closed-by-user"
	AuthUnknown           AuthCode = ""
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// FriendlyAuthMessage は認証失敗コードを利用者向けメッセージに変換する。
// 未知のコードは汎用メッセージ、コードなしは不明エラーのメッセージになる。
func FriendlyAuthMessage(code AuthCode) string {
	switch code {
	case AuthInvalidEmail:
		return "Неверный формат email."
	case AuthUserNotFound:
		return "Пользователь с таким email не найден."
	case AuthWrongPassword:
		return "Неверный пароль."
	case AuthEmailAlreadyInUse:
		return "Этот email уже используется."
	case AuthWeakPassword:
		return "Пароль должен быть не менее 6 символов."
	case AuthPasswordTooLong:
		return "Пароль слишком длинный (не более 72 байт)."
	case AuthInvalidCredential:
		return "Неверный email или пароль."
	case AuthPopupClosedByUser:
		return "Окно входа было закрыто. Попробуйте снова."
	case AuthUnknown:
		return "Произошла неизвестная ошибка."
	}
	return "Произошла ошибка. Попробуйте снова."
}

// AuthError は認証失敗を表す。AuthCodeはログや分岐用、APIErrorは画面表示用。
type AuthError struct {
	AuthCode AuthCode
	*APIError
}

// NewAuthError は認証失敗コードからエラーを生成する。
func NewAuthError(code AuthCode) *AuthError {
	return &AuthError{
		AuthCode: code,
		APIError: &APIError{
			Code:     ErrCodeAuthFailed,
			Message:  FriendlyAuthMessage(code),
			Category: "auth",
			Action:   "Проверьте введённые данные и попробуйте снова.",
		},
	}
}

// Unwrap はerrors.Asで*APIErrorとして取り出せるようにする。
func (e *AuthError) Unwrap() error {
	return e.APIError
}
