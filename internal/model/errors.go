package model

import (
	"errors"
	"fmt"
)

// APIError はクライアントが呼び出し元に返す統一エラー。
// 原因カテゴリとUI向けの対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（サーバー提供のメッセージがあればそれを使う）
	Category string // カテゴリ: network, auth, validation, system
	Action   string // ユーザー向け対処方法
	Status   int    // HTTPステータス。ネットワーク到達前のエラーでは0
	Err      error  // 元となったエラー
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("[%s] %s (status %d)", e.Code, e.Message, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap は元となったエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is はエラーコードが一致する場合にtrueを返す。
// errors.Is(err, model.ErrUnauthorized) の形で分類を判定できる。
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// 定義済みエラーコード
const (
	ErrCodeNetworkFailure          = "NETWORK_FAILURE"
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeValidationFailure       = "VALIDATION_FAILURE"
	ErrCodeServerFailure           = "SERVER_FAILURE"
	ErrCodeClientValidationFailure = "CLIENT_VALIDATION_FAILURE"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeRegistrationConflict    = "REGISTRATION_CONFLICT"
)

// errors.Is 判定用のセンチネル。
var (
	ErrNetworkFailure          = &APIError{Code: ErrCodeNetworkFailure}
	ErrUnauthorized            = &APIError{Code: ErrCodeUnauthorized}
	ErrValidationFailure       = &APIError{Code: ErrCodeValidationFailure}
	ErrServerFailure           = &APIError{Code: ErrCodeServerFailure}
	ErrClientValidationFailure = &APIError{Code: ErrCodeClientValidationFailure}
	ErrInvalidCredentials      = &APIError{Code: ErrCodeInvalidCredentials}
	ErrRegistrationConflict    = &APIError{Code: ErrCodeRegistrationConflict}
)

const actionRetry = "しばらく待ってから再度お試しください。"

// NewNetworkFailureError はサーバーに到達できなかった場合のエラーを生成する。
func NewNetworkFailureError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeNetworkFailure,
		Message:  "サーバーに接続できませんでした。",
		Category: "network",
		Action:   "ネットワーク接続を確認し、" + actionRetry,
		Err:      err,
	}
}

// NewUnauthorizedError はセッション期限切れ（401）のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Session expired. Please login again.",
		Category: "auth",
		Action:   "ログインし直してください。",
		Status:   401,
	}
}

// NewValidationFailureError はサーバーが4xxで入力を拒否した場合のエラーを生成する。
func NewValidationFailureError(status int, message string) *APIError {
	if message == "" {
		message = "リクエストが拒否されました。"
	}
	return &APIError{
		Code:     ErrCodeValidationFailure,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
		Status:   status,
	}
}

// NewServerFailureError はサーバーが5xxを返した場合のエラーを生成する。
func NewServerFailureError(status int, message string) *APIError {
	if message == "" {
		message = "サーバーでエラーが発生しました。"
	}
	return &APIError{
		Code:     ErrCodeServerFailure,
		Message:  message,
		Category: "system",
		Action:   actionRetry,
		Status:   status,
	}
}

// NewClientValidationError はネットワーク呼び出し前の入力検証エラーを生成する。
func NewClientValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeClientValidationFailure,
		Message:  reason,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗時のエラーを生成する。
func NewInvalidCredentialsError(status int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
		Status:   status,
	}
}

// NewRegistrationConflictError はメールアドレスが登録済みの場合のエラーを生成する。
func NewRegistrationConflictError(status int, message string) *APIError {
	if message == "" {
		message = "Registration failed. Email may already be in use."
	}
	return &APIError{
		Code:     ErrCodeRegistrationConflict,
		Message:  message,
		Category: "auth",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
		Status:   status,
	}
}

// StatusOf はエラーに含まれるHTTPステータスを返す。含まれない場合は0。
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
