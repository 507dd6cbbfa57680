// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// パスワード認証とGoogle認証の両方に対応するため、
// PasswordHashとGoogleIDはどちらも省略可能（ただし少なくとも一方は必要）。
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string // Google認証のみのアカウントでは空
	GoogleID       string // パスワード認証のみのアカウントでは空
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasPassword はパスワード認証が可能なアカウントかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HistoryEntry はユーザーの書籍登録履歴（追記専用の活動台帳）の1件を表す。
// 書籍登録のたびに1件追加され、削除・更新されることはない。
type HistoryEntry struct {
	ID        string
	UserID    string
	BookID    string
	Title     string
	Summary   string // 登録時点の要約のスナップショット
	CreatedAt time.Time
}
