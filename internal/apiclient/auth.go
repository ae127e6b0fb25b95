package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hitoshi/skillshare/internal/middleware"
	"github.com/hitoshi/skillshare/internal/model"
)

// AuthService はログインと新規登録を扱う。
// これらの呼び出しには認証ヘッダーを付与せず、401によるセッション破棄も行わない。
type AuthService service

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はメールアドレスとパスワードで認証し、トークンとユーザーを返す。
// 非2xxの場合はInvalidCredentials、サーバーに到達できない場合はNetworkFailureを返す。
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewClientValidationError("メールアドレスとパスワードを入力してください。")
	}

	body, err := encodePayload(loginRequest{Email: email, Password: password}, "", nil)
	if err != nil {
		return nil, err
	}

	var res model.AuthResponse
	err = s.client.call(middleware.WithoutAuth(ctx), http.MethodPost, "/auth/login", nil, body, &res)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Status != 0 {
			return nil, model.NewInvalidCredentialsError(apiErr.Status)
		}
		return nil, err
	}
	if res.Token == "" {
		return nil, model.NewServerFailureError(http.StatusOK, "レスポンスにトークンが含まれていません。")
	}
	return &res, nil
}

// Register は新規ユーザーを登録し、トークンとユーザーを返す。
// メールアドレスが登録済みの場合はRegistrationConflictを返す。
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.AuthResponse, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	switch {
	case name == "":
		return nil, model.NewClientValidationError("名前を入力してください。")
	case email == "":
		return nil, model.NewClientValidationError("メールアドレスを入力してください。")
	case password == "":
		return nil, model.NewClientValidationError("パスワードを入力してください。")
	}

	body, err := encodePayload(registerRequest{Name: name, Email: email, Password: password}, "", nil)
	if err != nil {
		return nil, err
	}

	var res model.AuthResponse
	err = s.client.call(middleware.WithoutAuth(ctx), http.MethodPost, "/auth/register", nil, body, &res)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && isRegistrationConflict(apiErr) {
			return nil, model.NewRegistrationConflictError(apiErr.Status, apiErr.Message)
		}
		return nil, err
	}
	if res.Token == "" {
		return nil, model.NewServerFailureError(http.StatusOK, "レスポンスにトークンが含まれていません。")
	}
	return &res, nil
}

// isRegistrationConflict は登録済みメールアドレスによる拒否かどうかを判定する。
// バックエンドは409、または400と "Email already registered" の本文を返す。
func isRegistrationConflict(err *model.APIError) bool {
	if err.Status == http.StatusConflict {
		return true
	}
	if err.Status < 400 || err.Status >= 500 {
		return false
	}
	msg := strings.ToLower(err.Message)
	return strings.Contains(msg, "already") || strings.Contains(msg, "exists")
}
