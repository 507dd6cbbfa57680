package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string // プロフィール画像URL（検証前）
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// PictureURLValidator はプロフィール画像URLの安全性検証インターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type PictureURLValidator interface {
	ValidateURL(rawURL string) error
}

// Service は認証に関するビジネスロジックを提供する。
// パスワード認証とGoogle認証の両方で、成功時に署名付きセッショントークンを発行する。
type Service struct {
	userRepo     repository.UserRepository
	tokens       *TokenManager
	oauth        OAuthProvider // nilの場合はGoogleログイン無効
	picValidator PictureURLValidator
}

// NewService はServiceを生成する。
// oauthがnilの場合、Googleログイン関連のメソッドはエラーを返す。
func NewService(
	userRepo repository.UserRepository,
	tokens *TokenManager,
	oauth OAuthProvider,
	picValidator PictureURLValidator,
) *Service {
	return &Service{
		userRepo:     userRepo,
		tokens:       tokens,
		oauth:        oauth,
		picValidator: picValidator,
	}
}

// Signup はユーザーを新規登録し、セッショントークンを発行する。
// username/email/passwordはすべて必須。重複するメールアドレスまたは
// ユーザー名が既に存在する場合はDUPLICATE_USERを返す。
func (s *Service) Signup(ctx context.Context, username, email, password string) (*model.User, string, error) {
	// 入力検証はusername、email、passwordの順で行い、最初の欠落を報告する
	if username == "" {
		return nil, "", model.NewValidationError("ユーザー名")
	}
	if email == "" {
		return nil, "", model.NewValidationError("メールアドレス")
	}
	if password == "" {
		return nil, "", model.NewValidationError("パスワード")
	}

	// 重複チェック。Createの一意制約が並行登録との競合を最終的に防ぐ。
	existing, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", model.NewDuplicateUserError()
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return user, token, nil
}

// Login はメールアドレスとパスワードで認証し、セッショントークンを発行する。
// アカウント列挙攻撃を防ぐため、ユーザー不存在とパスワード不一致は
// 同一のINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if email == "" {
		return nil, "", model.NewValidationError("メールアドレス")
	}
	if password == "" {
		return nil, "", model.NewValidationError("パスワード")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	// Google認証のみのアカウントにはパスワードが存在しない
	if !user.HasPassword() {
		return nil, "", model.NewGoogleOnlyAccountError()
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return user, token, nil
}

// GetLoginURL はGoogle OAuthの認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	if s.oauth == nil {
		return ""
	}
	return s.oauth.GetLoginURL(state)
}

// HandleGoogleCallback はGoogle OAuthコールバックを処理し、セッショントークンを発行する。
// 未登録ユーザーは自動作成し、同一メールアドレスの既存パスワードアカウントには
// Googleアカウントを紐付ける。
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*model.User, string, error) {
	if s.oauth == nil {
		return nil, "", fmt.Errorf("google oauth is not configured")
	}

	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	picture := s.validatedPicture(info.Picture)

	// 1. Google IDで既存ユーザーを検索
	user, err := s.userRepo.FindByGoogleID(ctx, info.ProviderUserID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user by google ID: %w", err)
	}

	if user == nil {
		// 2. 同一メールアドレスの既存アカウントに紐付け
		user, err = s.userRepo.FindByEmail(ctx, info.Email)
		if err != nil {
			return nil, "", fmt.Errorf("failed to find user by email: %w", err)
		}
		if user != nil {
			if err := s.userRepo.LinkGoogleAccount(ctx, user.ID, info.ProviderUserID, picture); err != nil {
				return nil, "", fmt.Errorf("failed to link google account: %w", err)
			}
			user.GoogleID = info.ProviderUserID
			if picture != "" {
				user.ProfilePicture = picture
			}
			slog.Info("google account linked", slog.String("user_id", user.ID))
		} else {
			// 3. 新規ユーザーを自動作成
			user, err = s.createGoogleUser(ctx, info, picture)
			if err != nil {
				return nil, "", err
			}
			slog.Info("new user created via google",
				slog.String("user_id", user.ID),
				slog.String("email", info.Email),
			)
		}
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return user, token, nil
}

// GetProfile は現在のユーザーのプロフィールと活動台帳を返す。
// パスワードハッシュは呼び出し側でレスポンスに含めないこと。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, []*model.HistoryEntry, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewUserNotFoundError()
	}

	history, err := s.userRepo.ListHistoryByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list history: %w", err)
	}

	return user, history, nil
}

// createGoogleUser はGoogleユーザー情報から新規ユーザーを作成する。
// ユーザー名はメールアドレスのローカル部から導出し、衝突時はIDの一部を付加する。
func (s *Service) createGoogleUser(ctx context.Context, info *OAuthUserInfo, picture string) (*model.User, error) {
	id := uuid.New().String()
	username := usernameFromEmail(info.Email)

	existing, err := s.userRepo.FindByEmailOrUsername(ctx, info.Email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username collision: %w", err)
	}
	if existing != nil {
		username = username + "-" + id[:8]
	}

	now := time.Now()
	user := &model.User{
		ID:             id,
		Username:       username,
		Email:          info.Email,
		GoogleID:       info.ProviderUserID,
		ProfilePicture: picture,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// validatedPicture はプロフィール画像URLを検証し、不正なURLは破棄する。
func (s *Service) validatedPicture(rawURL string) string {
	if rawURL == "" || s.picValidator == nil {
		return rawURL
	}
	if err := s.picValidator.ValidateURL(rawURL); err != nil {
		slog.Warn("profile picture URL rejected",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return rawURL
}

// usernameFromEmail はメールアドレスのローカル部をユーザー名として切り出す。
func usernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
