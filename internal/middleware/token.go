// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/bookman/internal/model"
)

// tokenCookieName はセッショントークンを格納するCookieの名前。
const tokenCookieName = "token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// auth.TokenManagerの部分集合として定義する。
type TokenVerifier interface {
	// Verify はトークンを検証し、ユーザーIDを返す。
	Verify(tokenString string) (string, error)
}

// tokenExtractor はリクエストから資格情報を取り出す1つの戦略。
// 取り出せた場合はok=trueを返す。
type tokenExtractor func(r *http.Request) (token string, ok bool)

// extractCookieToken はCookieヘッダからtoken Cookieの値を取り出す。
// ';'で分割し、トリム後に"token="で始まる最初のセグメントの値を採用する。
func extractCookieToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Cookie")
	if header == "" {
		return "", false
	}
	for _, segment := range strings.Split(header, ";") {
		trimmed := strings.TrimSpace(segment)
		if value, found := strings.CutPrefix(trimmed, tokenCookieName+"="); found && value != "" {
			return value, true
		}
	}
	return "", false
}

// extractBearerToken はAuthorizationヘッダからBearerトークンを取り出す。
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	value, found := strings.CutPrefix(header, "Bearer ")
	if !found || value == "" {
		return "", false
	}
	return value, true
}

// NewTokenMiddleware はリクエストからセッショントークンを解決し、
// 検証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
//
// 資格情報は優先順に解決される: token Cookieが先、Authorization: Bearerが後。
// 同一トークンはどちらの経路でも同一ユーザーに解決される。
// 資格情報がない場合と無効な場合はどちらも401を返すが、理由は区別される。
func NewTokenMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	extractors := []tokenExtractor{extractCookieToken, extractBearerToken}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			for _, extract := range extractors {
				if value, ok := extract(r); ok {
					token = value
					break
				}
			}
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("no credential"))
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("invalid credential"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// トークンミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
