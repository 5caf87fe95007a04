// Package model はドメインモデルを定義する。
package model

import "time"

// ロール名。
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AdminUserID は管理者オーバーライドで発行される合成ユーザーID。
// 永続化されたユーザーには割り当てられない。
const AdminUserID int64 = 0

// User はノートアプリの利用者を表す。
// 認証コード関連のフィールドはメール確認待ちの間だけ値を持つ。
type User struct {
	ID                    int64
	Username              string
	Email                 string
	PasswordHash          string
	IsVerified            bool
	VerificationCodeHash  *string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasPendingVerification は認証コードが発行済みかを返す。
func (u *User) HasPendingVerification() bool {
	return u.VerificationCodeHash != nil && u.VerificationExpiresAt != nil
}

// PublicUser はパスワードや認証コードを含まない公開用のユーザー表現。
type PublicUser struct {
	ID         int64
	Username   string
	Email      string
	IsVerified bool
	CreatedAt  time.Time
}

// Public はユーザーの公開用表現を返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// Identity は認可ガードが解決したリクエスト主体を表す。
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin は管理者ロールかを返す。
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
