// Package model はバックエンドとやり取りするドメインモデルを定義する。
package model

// User はプラットフォームの利用ユーザーを表す。
// バックエンドが返すプロフィールのスナップショットであり、クライアントは所有しない。
type User struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// AuthResponse はログイン・登録成功時のレスポンスを表す。
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ProfileUpdate はプロフィール更新リクエストのテキスト項目。
type ProfileUpdate struct {
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// FileUploadResponse はファイルアップロードのレスポンスを表す。
type FileUploadResponse struct {
	FileURL string `json:"fileUrl"`
}

// UnreadCount は未読通知数を表す。
type UnreadCount int64
