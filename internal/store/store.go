// Package store はユーザーと章テキストの永続化を提供します。
package store

import (
	"errors"
	"time"
)

// ErrNotFound は対象のレコードが存在しないことを表します。
var ErrNotFound = errors.New("store: not found")

// User はユーザープロフィールを表す読み取り専用の値オブジェクトです。
type User struct {
	ID           string
	Username     string
	Nickname     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// DisplayName は表示名を返します。
// ニックネーム → ユーザー名 → メールアドレスの順で最初に空でないものを採用します。
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Chapter は保存済みの章テキストを表します。
type Chapter struct {
	UserID    string
	ChapterID string
	Content   string
	UpdatedAt time.Time
}
