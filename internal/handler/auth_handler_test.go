package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// --- モック ---

type mockAuthService struct {
	signupFn               func(ctx context.Context, username, email, password string) (*model.User, string, error)
	loginFn                func(ctx context.Context, email, password string) (*model.User, string, error)
	getLoginURLFn          func(state string) string
	handleGoogleCallbackFn func(ctx context.Context, code string) (*model.User, string, error)
	getProfileFn           func(ctx context.Context, userID string) (*model.User, []*model.HistoryEntry, error)
}

func (m *mockAuthService) Signup(ctx context.Context, username, email, password string) (*model.User, string, error) {
	return m.signupFn(ctx, username, email, password)
}
func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	return m.loginFn(ctx, email, password)
}
func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}
func (m *mockAuthService) HandleGoogleCallback(ctx context.Context, code string) (*model.User, string, error) {
	return m.handleGoogleCallbackFn(ctx, code)
}
func (m *mockAuthService) GetProfile(ctx context.Context, userID string) (*model.User, []*model.HistoryEntry, error) {
	return m.getProfileFn(ctx, userID)
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// parseErrorResponse はレスポンスボディからエラーレスポンスをパースする。
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// --- テスト ---

func TestAuthHandler_Signup_Success(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*model.User, string, error) {
			return &model.User{ID: "user-1", Username: username, Email: email, PasswordHash: "hashed"}, "issued-token", nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/signup",
		strings.NewReader(`{"username":"ana","email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	cookie := findCookie(t, w, "token")
	if cookie == nil {
		t.Fatal("token cookie should be set")
	}
	if cookie.Value != "issued-token" {
		t.Errorf("cookie value = %q, want issued token", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("token cookie must be HttpOnly")
	}
	if cookie.Path != "/" {
		t.Errorf("cookie path = %q, want /", cookie.Path)
	}
	if cookie.MaxAge != tokenCookieMaxAge {
		t.Errorf("cookie MaxAge = %d, want %d", cookie.MaxAge, tokenCookieMaxAge)
	}

	var resp authResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.User.ID != "user-1" || resp.Token != "issued-token" {
		t.Errorf("resp = %+v, want user-1 with issued token", resp)
	}
}

// TestAuthHandler_Signup_NoPasswordHashInResponse はレスポンスボディに
// パスワードハッシュが含まれないことを検証する。
func TestAuthHandler_Signup_NoPasswordHashInResponse(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*model.User, string, error) {
			return &model.User{ID: "user-1", Username: username, Email: email, PasswordHash: "bcrypt-hash-value"}, "tok", nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/signup",
		strings.NewReader(`{"username":"ana","email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if body := w.Body.String(); strings.Contains(body, "bcrypt-hash-value") {
		t.Error("response must not contain the password hash")
	}
}

func TestAuthHandler_Signup_ValidationError(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*model.User, string, error) {
			return nil, "", model.NewValidationError("ユーザー名")
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/signup",
		strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Code != model.ErrCodeValidationFailed {
		t.Errorf("error code = %q, want VALIDATION_FAILED", body.Code)
	}
	if findCookie(t, w, "token") != nil {
		t.Error("no cookie should be set on failure")
	}
}

func TestAuthHandler_Signup_InvalidJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Signup_DuplicateUser(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*model.User, string, error) {
			return nil, "", model.NewDuplicateUserError()
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/signup",
		strings.NewReader(`{"username":"ana","email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Code != model.ErrCodeDuplicateUser {
		t.Errorf("error code = %q, want DUPLICATE_USER", body.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"a@x.com","password":"wrong"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := parseErrorResponse(t, w); body.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("error code = %q, want INVALID_CREDENTIALS", body.Code)
	}
}

func TestAuthHandler_Login_GoogleOnlyAccount(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return nil, "", model.NewGoogleOnlyAccountError()
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseErrorResponse(t, w); body.Code != model.ErrCodeGoogleOnlyAccount {
		t.Errorf("error code = %q, want GOOGLE_ONLY_ACCOUNT", body.Code)
	}
}

// TestAuthHandler_CookiePolicy はCookieSecure設定に応じて
// SameSite属性が切り替わることを検証する。
func TestAuthHandler_CookiePolicy(t *testing.T) {
	tests := []struct {
		name         string
		cookieSecure bool
		wantSameSite http.SameSite
	}{
		{"本番構成はSameSite=None+Secure", true, http.SameSiteNoneMode},
		{"開発構成はSameSite=Lax", false, http.SameSiteLaxMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockAuthService{
				loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
					return &model.User{ID: "user-1"}, "tok", nil
				},
			}
			h := NewAuthHandler(service, AuthHandlerConfig{CookieSecure: tt.cookieSecure})

			req := httptest.NewRequest(http.MethodPost, "/login",
				strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
			w := httptest.NewRecorder()

			h.Login(w, req)

			cookie := findCookie(t, w, "token")
			if cookie == nil {
				t.Fatal("token cookie should be set")
			}
			if cookie.SameSite != tt.wantSameSite {
				t.Errorf("SameSite = %v, want %v", cookie.SameSite, tt.wantSameSite)
			}
			if cookie.Secure != tt.cookieSecure {
				t.Errorf("Secure = %v, want %v", cookie.Secure, tt.cookieSecure)
			}
		})
	}
}

// TestAuthHandler_Logout_ClearsCookie はログアウトでCookieが失効されることを検証する。
func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Cookie", "token=still-valid-token")
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	cookie := findCookie(t, w, "token")
	if cookie == nil {
		t.Fatal("clearing Set-Cookie should be present")
	}
	if cookie.Value != "" {
		t.Errorf("cookie value = %q, want empty", cookie.Value)
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want negative (expired)", cookie.MaxAge)
	}
}

func TestAuthHandler_GetUser_ReturnsProfileWithHistory(t *testing.T) {
	service := &mockAuthService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, []*model.HistoryEntry, error) {
			user := &model.User{ID: userID, Username: "ana", Email: "a@x.com", PasswordHash: "secret-hash"}
			history := []*model.HistoryEntry{
				{ID: "hist-1", UserID: userID, BookID: "book-1", Title: "Dune", Summary: "要約"},
			}
			return user, history, nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); strings.Contains(body, "secret-hash") {
		t.Error("profile response must not contain the password hash")
	}

	var resp profileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Username != "ana" {
		t.Errorf("username = %q, want ana", resp.Username)
	}
	if len(resp.History) != 1 || resp.History[0].BookID != "book-1" {
		t.Errorf("history = %+v, want 1 entry for book-1", resp.History)
	}
}

func TestAuthHandler_GetUser_WithoutContext(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_GoogleLogin_RedirectsWithStateCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()

	h.GoogleLogin(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}

	stateCookie := findCookie(t, w, "oauth_state")
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("oauth_state cookie should be set")
	}
	location := w.Header().Get("Location")
	if !strings.Contains(location, "state="+stateCookie.Value) {
		t.Errorf("redirect %q should carry the state from the cookie", location)
	}
}

func TestAuthHandler_GoogleCallback_StateMismatch(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=attacker", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "legitimate"})
	w := httptest.NewRecorder()

	h.GoogleCallback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_GoogleCallback_Success(t *testing.T) {
	service := &mockAuthService{
		handleGoogleCallbackFn: func(ctx context.Context, code string) (*model.User, string, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want auth-code", code)
			}
			return &model.User{ID: "user-1"}, "issued-token", nil
		},
	}
	h := NewAuthHandler(service, AuthHandlerConfig{BaseURL: "http://localhost:5173"})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "xyz"})
	w := httptest.NewRecorder()

	h.GoogleCallback(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	if loc := w.Header().Get("Location"); loc != "http://localhost:5173" {
		t.Errorf("redirect location = %q, want frontend base URL", loc)
	}

	cookie := findCookie(t, w, "token")
	if cookie == nil || cookie.Value != "issued-token" {
		t.Error("token cookie should be set after google login")
	}
}
