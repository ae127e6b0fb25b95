package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/skillshare/internal/model"
)

// UsersService はユーザープロフィールとフォロー関係を扱う。
type UsersService service

// GetCurrentUser はトークンの持ち主のプロフィールを返す。
func (s *UsersService) GetCurrentUser(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := s.client.call(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID は指定ユーザーのプロフィールを返す。
func (s *UsersService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.client.call(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile は名前と自己紹介を更新する。
// pictureを渡した場合は同じ呼び出しをマルチパート（fileパート）で送信する。
func (s *UsersService) UpdateProfile(ctx context.Context, update model.ProfileUpdate, picture *Attachment) (*model.User, error) {
	update.Name = strings.TrimSpace(update.Name)
	if update.Name == "" {
		return nil, model.NewClientValidationError("名前を入力してください。")
	}

	var files []*Attachment
	if picture != nil {
		files = append(files, picture)
	}
	body, err := encodePayload(update, "file", files)
	if err != nil {
		return nil, err
	}

	var u model.User
	if err := s.client.call(ctx, http.MethodPut, "/users/me", nil, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfilePicture はプロフィール画像をマルチパート（fileパート）でアップロードする。
func (s *UsersService) UpdateProfilePicture(ctx context.Context, file *Attachment) (*model.User, error) {
	if file == nil {
		return nil, model.NewClientValidationError("画像ファイルを指定してください。")
	}
	body, err := encodePayload(nil, "file", []*Attachment{file})
	if err != nil {
		return nil, err
	}

	var u model.User
	if err := s.client.call(ctx, http.MethodPost, "/users/me/profile-picture", nil, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Follow は指定ユーザーをフォローする。
func (s *UsersService) Follow(ctx context.Context, id int64) error {
	return s.client.call(ctx, http.MethodPost, fmt.Sprintf("/users/%d/follow", id), nil, nil, nil)
}

// Unfollow は指定ユーザーのフォローを解除する。
func (s *UsersService) Unfollow(ctx context.Context, id int64) error {
	return s.client.call(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/follow", id), nil, nil, nil)
}

// Search は名前またはメールアドレスでユーザーを検索する。
// 該当なし、または空のクエリの場合は空スライスを返す（空クエリではリクエストしない）。
func (s *UsersService) Search(ctx context.Context, query string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.User{}, nil
	}

	q := url.Values{}
	q.Set("query", query)

	var users []model.User
	if err := s.client.call(ctx, http.MethodGet, "/users/search", q, nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
