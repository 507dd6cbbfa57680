// Package model はドメインモデルを定義する。
package model

import "time"

// Book はユーザーが登録した書籍を表す。
// 登録後は更新・削除されないイミュータブルなレコードとして扱う。
type Book struct {
	ID        string
	UserID    string // 所有者のユーザーID（FK制約は張らない）
	Title     string
	Author    string
	Content   string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSummary は要約が生成済みかを返す。
func (b *Book) HasSummary() bool {
	return b.Summary != ""
}
