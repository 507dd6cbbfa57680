// Package auth はパスワード認証、Google OAuth認証、セッショントークンの
// 発行・検証を提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost はパスワードハッシュのコストファクター。
const bcryptCost = 10

// HashPassword はパスワードをランダムソルト付きのbcryptハッシュに変換する。
// 平文がログや戻り値以外に残ることはない。
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードとハッシュを照合する。
// 不一致・不正なハッシュのいずれでもfalseを返し、パニックしない。
func VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
