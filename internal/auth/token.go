package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL はセッショントークンの有効期間。
// 失効後のリフレッシュ機構はなく、再ログインが必要になる。
const TokenTTL = 7 * 24 * time.Hour

// Claims はセッショントークンに埋め込むクレーム。
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenManager はHMAC署名付きセッショントークンの発行と検証を行う。
// トークンはサーバー側に保存されず、有効性は署名と有効期限のみで決まる。
type TokenManager struct {
	secret []byte
}

// NewTokenManager はTokenManagerを生成する。
// secretは起動時に構築されたConfigから渡すこと。
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Issue はユーザーIDを埋め込んだ署名付きトークンを発行する。
// 有効期限は発行時刻から7日間。
func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、埋め込まれたユーザーIDを返す。
// 署名不正・形式不正・期限切れのいずれもエラーになる。
func (m *TokenManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return "", fmt.Errorf("invalid token claims")
	}

	return claims.UserID, nil
}
