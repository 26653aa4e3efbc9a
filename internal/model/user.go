package model

import (
	"strings"
	"time"
)

// User はアカウント本体。Google経由のみで登録した場合PasswordHashは空になる。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword はメール+パスワードでサインインできるかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// DisplayName は画面表示用の名前。Nameが空ならメールアドレスの@より前を使う。
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Identity はGoogleなど外部サインインとユーザーの紐付け。
// (Provider, ProviderUserID) はユーザーをまたいで一意。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はCookieで参照されるサインイン状態。ExpiresAtを過ぎると無効。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はnow時点で期限切れかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Account はアカウント画面に表示する概要。
type Account struct {
	User           *User
	Providers      []string
	ActiveSessions int
}
