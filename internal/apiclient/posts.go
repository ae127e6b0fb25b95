package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/skillshare/internal/model"
)

// PostsService は投稿の取得・作成・いいねを扱う。
type PostsService service

// mediaPartName は投稿に添付するファイルのパート名。
const mediaPartName = "media"

// GetFeed はフォロー中のユーザーの投稿を新しい順に返す。
func (s *PostsService) GetFeed(ctx context.Context, p Pagination) (*model.Page[model.Post], error) {
	return s.list(ctx, "/posts/feed", p)
}

// GetAll はプラットフォーム全体の投稿を新しい順に返す。
func (s *PostsService) GetAll(ctx context.Context, p Pagination) (*model.Page[model.Post], error) {
	return s.list(ctx, "/posts", p)
}

func (s *PostsService) list(ctx context.Context, path string, p Pagination) (*model.Page[model.Post], error) {
	var page model.Page[model.Post]
	if err := s.client.call(ctx, http.MethodGet, path, p.Query(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetByID は投稿を1件取得する。
func (s *PostsService) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	var post model.Post
	if err := s.client.call(ctx, http.MethodGet, postPath(id), nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Create は投稿を作成する。
// mediaが空の場合はJSON、1つ以上の場合は同じフィールド名のマルチパートに
// mediaパートを加えて送信する。Typeが空の場合はSKILL_SHARINGとする。
func (s *PostsService) Create(ctx context.Context, in model.PostInput, media ...*Attachment) (*model.Post, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, model.NewClientValidationError("投稿内容を入力してください。")
	}
	if in.Type == "" {
		in.Type = model.PostTypeSkillSharing
	}
	if !in.Type.Valid() {
		return nil, model.NewClientValidationError(fmt.Sprintf("不明な投稿種別です: %s", in.Type))
	}
	body, err := encodePayload(in, mediaPartName, media)
	if err != nil {
		return nil, err
	}

	var post model.Post
	if err := s.client.call(ctx, http.MethodPost, "/posts", nil, body, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

type updatePostRequest struct {
	Content string `json:"content"`
}

// Update は投稿の本文を更新する。
func (s *PostsService) Update(ctx context.Context, id int64, content string) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.NewClientValidationError("投稿内容を入力してください。")
	}
	body, err := encodePayload(updatePostRequest{Content: content}, "", nil)
	if err != nil {
		return nil, err
	}

	var post model.Post
	if err := s.client.call(ctx, http.MethodPut, postPath(id), nil, body, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete は投稿を削除する。
func (s *PostsService) Delete(ctx context.Context, id int64) error {
	return s.client.call(ctx, http.MethodDelete, postPath(id), nil, nil, nil)
}

// Like は投稿にいいねする。いいね済みの投稿に対しても成功し、いいねは1件のまま。
// バックエンドが重複として409を返した場合は投稿を取得し直して返す。
func (s *PostsService) Like(ctx context.Context, id int64) (*model.Post, error) {
	return s.setLike(ctx, http.MethodPost, id)
}

// Unlike はいいねを取り消す。いいねしていない投稿に対しても成功する。
func (s *PostsService) Unlike(ctx context.Context, id int64) (*model.Post, error) {
	return s.setLike(ctx, http.MethodDelete, id)
}

func (s *PostsService) setLike(ctx context.Context, method string, id int64) (*model.Post, error) {
	var post model.Post
	err := s.client.call(ctx, method, postPath(id)+"/like", nil, nil, &post)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return s.GetByID(ctx, id)
		}
		return nil, err
	}
	if post.ID == 0 {
		// 本文を返さないバックエンドでは最新の状態を取得する
		return s.GetByID(ctx, id)
	}
	return &post, nil
}

// ToggleLike はuserIDがいいね済みかどうかでLikeとUnlikeを切り替える。
func (s *PostsService) ToggleLike(ctx context.Context, post *model.Post, userID int64) (*model.Post, error) {
	if post == nil {
		return nil, model.NewClientValidationError("投稿が指定されていません。")
	}
	if post.LikedBy(userID) {
		return s.Unlike(ctx, post.ID)
	}
	return s.Like(ctx, post.ID)
}

func postPath(id int64) string {
	return fmt.Sprintf("/posts/%d", id)
}
