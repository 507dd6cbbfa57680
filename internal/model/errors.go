// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, book, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeDuplicateUser      = "DUPLICATE_USER"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeGoogleOnlyAccount  = "GOOGLE_ONLY_ACCOUNT"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeBookNotFound       = "BOOK_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewValidationError は必須フィールド欠落エラーを生成する。
// fieldには欠落したフィールド名を指定する。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("%s は必須です。", field),
		Category: "validation",
		Action:   fmt.Sprintf("%s を入力してください。", field),
	}
}

// NewDuplicateUserError はメールアドレスまたはユーザー名の重複エラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "このメールアドレスまたはユーザー名は既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスまたはユーザー名を使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// アカウント列挙攻撃を防ぐため、「ユーザーが存在しない」場合と
// 「パスワードが違う」場合で同一のエラーを返すこと。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewGoogleOnlyAccountError はGoogle認証専用アカウントへの
// パスワードログイン試行エラーを生成する。
func NewGoogleOnlyAccountError() *APIError {
	return &APIError{
		Code:     ErrCodeGoogleOnlyAccount,
		Message:  "このアカウントはGoogle認証で登録されています。",
		Category: "auth",
		Action:   "Googleログインを使用してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// reasonには "no credential"（トークン未提示）または
// "invalid credential"（トークン無効・期限切れ）を指定する。
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  fmt.Sprintf("認証が必要です: %s", reason),
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewBookNotFoundError は書籍未検出エラーを生成する。
// 他ユーザーの書籍を指定した場合も存在を漏らさないよう同一のエラーを返すこと。
func NewBookNotFoundError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定された書籍が見つかりません: %s", bookID),
		Category: "book",
		Action:   "書籍IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
