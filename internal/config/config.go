package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// InsecureDefaultJWTSecret はJWT_SECRET未設定時に使用される開発用の署名鍵。
// 本番環境では必ずJWT_SECRETを設定すること。起動時に警告ログを出力する。
const InsecureDefaultJWTSecret = "default_jwt_secret_key"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// JWT
	JWTSecret string

	// Google OAuth（未設定の場合はGoogleログインを無効化する）
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Summary
	SummaryTimeout      time.Duration
	SummaryMaxPerMinute int

	// Server
	ServerPort string
	BaseURL    string
	Env        string // "development" または "production"

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// JWTSecretIsDefault は署名鍵が開発用デフォルトのままかを返す。
func (c *Config) JWTSecretIsDefault() bool {
	return c.JWTSecret == InsecureDefaultJWTSecret
}

// GoogleOAuthEnabled はGoogleログインが構成済みかを返す。
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// JWT_SECRETのみ例外で、未設定でも開発用デフォルトにフォールバックする
// （起動は継続するが、呼び出し側で警告を出すこと）。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JWTSecret = getEnvString("JWT_SECRET", InsecureDefaultJWTSecret)
	cfg.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "")
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	cfg.SummaryTimeout = getEnvDuration("SUMMARY_TIMEOUT", 30*time.Second)
	cfg.SummaryMaxPerMinute = getEnvInt("SUMMARY_MAX_PER_MINUTE", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:5173")
	cfg.Env = getEnvString("APP_ENV", "development")
	cfg.CookieSecure = cfg.Env == "production"
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
