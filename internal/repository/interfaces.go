// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bookman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByEmailOrUsername はメールアドレスまたはユーザー名が一致する
	// ユーザーを検索する。重複登録の事前チェックに使用する。
	// 見つからない場合はnilを返す。
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)

	// FindByGoogleID はGoogleアカウントIDでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。
	// username/emailの一意制約違反時はmodel.APIError（DUPLICATE_USER）を返す。
	Create(ctx context.Context, user *model.User) error

	// LinkGoogleAccount は既存ユーザーにGoogleアカウントIDと
	// プロフィール画像URLを紐付ける。
	LinkGoogleAccount(ctx context.Context, userID, googleID, profilePicture string) error

	// AppendHistory は活動台帳に1件追記する。台帳は追記専用で、更新・削除はない。
	AppendHistory(ctx context.Context, entry *model.HistoryEntry) error

	// ListHistoryByUserID はユーザーの活動台帳を追記順で返す。
	ListHistoryByUserID(ctx context.Context, userID string) ([]*model.HistoryEntry, error)
}

// BookRepository は書籍データの永続化インターフェース。
type BookRepository interface {
	// Create は書籍を作成する。
	Create(ctx context.Context, book *model.Book) error

	// FindByIDAndOwner はIDと所有者の両方が一致する書籍を取得する。
	// 他ユーザーの書籍を指定した場合も「存在しない」場合と同様にnilを返す。
	FindByIDAndOwner(ctx context.Context, id, userID string) (*model.Book, error)

	// ListByOwner は所有者の書籍一覧を作成日時の降順で返す。
	// Contentフィールドは取得しない（一覧では本文を返さない）。
	ListByOwner(ctx context.Context, userID string) ([]*model.Book, error)
}
