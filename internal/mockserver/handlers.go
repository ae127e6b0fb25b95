package mockserver

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/skillshare/internal/model"
)

const (
	// maxUploadSize はマルチパートリクエストの最大サイズ（32MB）。
	maxUploadSize = 32 << 20
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isMultipartRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}

// saveUpload はアップロードされたファイルを保存し、参照用のURLを返す。
func (s *Server) saveUpload(fh *multipart.FileHeader, category string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	s.store.putFile(name, &fileRecord{data: data, contentType: contentType, category: category})
	return "/files/" + name, nil
}

// --- ユーザー ---

// handleGetMe はトークンの持ち主を返す。
// GET /users/me
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// handleGetUser はユーザーを返す。
// GET /users/{id}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid user id")
		return
	}
	u, ok := s.store.user(id)
	if !ok {
		writeNotFound(w, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleUpdateMe はプロフィールを更新する。JSONとマルチパート（fileパート付き）の両方を受け付ける。
// PUT /users/me
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var update model.ProfileUpdate
	var picture *multipart.FileHeader

	if isMultipartRequest(r) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeBadRequest(w, "Invalid multipart body")
			return
		}
		update.Name = r.FormValue("name")
		update.Bio = r.FormValue("bio")
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			picture = files[0]
		}
	} else if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(update.Name) == "" {
		writeBadRequest(w, "Name is required")
		return
	}

	var pictureURL string
	if picture != nil {
		u, err := s.saveUpload(picture, "profile")
		if err != nil {
			writeInternalServerError(w)
			return
		}
		pictureURL = u
	}

	u, ok := s.store.updateUser(currentUser(r).ID, func(u *model.User) {
		u.Name = strings.TrimSpace(update.Name)
		u.Bio = update.Bio
		if pictureURL != "" {
			u.ProfilePicture = pictureURL
		}
	})
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleUpdateProfilePicture はプロフィール画像を更新する。
// POST /users/me/profile-picture
func (s *Server) handleUpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeBadRequest(w, "Invalid multipart body")
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeBadRequest(w, "file part is required")
		return
	}
	pictureURL, err := s.saveUpload(files[0], "profile")
	if err != nil {
		writeInternalServerError(w)
		return
	}

	u, ok := s.store.updateUser(currentUser(r).ID, func(u *model.User) {
		u.ProfilePicture = pictureURL
	})
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleSearchUsers は名前またはメールアドレスでユーザーを検索する。
// GET /users/search?query=
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusOK, []model.User{})
		return
	}
	writeJSON(w, http.StatusOK, s.store.searchUsers(query))
}

// handleFollow はユーザーをフォローする。
// POST /users/{id}/follow
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, true)
}

// handleUnfollow はフォローを解除する。
// DELETE /users/{id}/follow
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, false)
}

func (s *Server) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid user id")
		return
	}
	me := currentUser(r)
	if id == me.ID {
		writeBadRequest(w, "You cannot follow yourself")
		return
	}

	changed, ok := s.store.setFollow(me.ID, id, follow)
	if !ok {
		writeNotFound(w, "User")
		return
	}
	if follow && changed {
		s.store.notify(id, model.NotificationTypeFollow,
			fmt.Sprintf("%s started following you", me.Name),
			fmt.Sprintf("/users/%d", me.ID), s.now())
	}
	w.WriteHeader(http.StatusOK)
}

// --- 投稿 ---

// handleListPosts は全投稿を返す。
// GET /posts
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.store.listPosts(0)))
}

// handleFeed は自分とフォロー中のユーザーの投稿を返す。
// GET /posts/feed
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.store.listPosts(currentUser(r).ID)))
}

// handleGetPost は投稿を返す。
// GET /posts/{id}
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid post id")
		return
	}
	p, ok := s.store.post(id)
	if !ok {
		writeNotFound(w, "Post")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreatePost は投稿を作成する。
// JSONの場合は{content,type,mediaUrls}、マルチパートの場合は同名のフィールドとmediaパートを受け付ける。
// POST /posts
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in model.PostInput
	var media []*multipart.FileHeader

	if isMultipartRequest(r) {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeBadRequest(w, "Invalid multipart body")
			return
		}
		in.Content = r.FormValue("content")
		in.Type = model.PostType(r.FormValue("type"))
		in.MediaURLs = r.MultipartForm.Value["mediaUrls"]
		media = r.MultipartForm.File["media"]
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		writeBadRequest(w, "Content is required")
		return
	}
	if in.Type == "" {
		in.Type = model.PostTypeSkillSharing
	}
	if !in.Type.Valid() {
		writeBadRequest(w, "Unknown post type")
		return
	}

	mediaURLs := append([]string{}, in.MediaURLs...)
	for _, fh := range media {
		u, err := s.saveUpload(fh, "posts")
		if err != nil {
			writeInternalServerError(w)
			return
		}
		mediaURLs = append(mediaURLs, u)
	}

	p := s.store.createPost(currentUser(r), content, in.Type, mediaURLs, s.now())
	writeJSON(w, http.StatusCreated, p)
}

// handleUpdatePost は投稿の本文を更新する。
// PUT /posts/{id}
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid post id")
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeBadRequest(w, "Content is required")
		return
	}

	p, res := s.store.updatePost(id, currentUser(r).ID, strings.TrimSpace(req.Content))
	if writeResult(w, res, "Post") {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePost は投稿を削除する。
// DELETE /posts/{id}
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid post id")
		return
	}
	if writeResult(w, s.store.deletePost(id, currentUser(r).ID), "Post") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLike は投稿にいいねする。いいね済みでも200を返す。
// POST /posts/{id}/like
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, true)
}

// handleUnlike はいいねを取り消す。
// DELETE /posts/{id}/like
func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	s.setLike(w, r, false)
}

func (s *Server) setLike(w http.ResponseWriter, r *http.Request, like bool) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid post id")
		return
	}
	me := currentUser(r)
	p, ownerID, changed, ok := s.store.setLike(id, me.ID, like)
	if !ok {
		writeNotFound(w, "Post")
		return
	}
	if like && changed && ownerID != me.ID {
		s.store.notify(ownerID, model.NotificationTypeLike,
			fmt.Sprintf("%s liked your post", me.Name),
			fmt.Sprintf("/posts/%d", p.ID), s.now())
	}
	writeJSON(w, http.StatusOK, p)
}

// --- 学習プラン ---

// handleListPlans は全学習プランを返す。
// GET /learning-plans
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.store.listPlans(0)))
}

// handleMyPlans は自分の学習プランを返す。
// GET /learning-plans/my-plans
func (s *Server) handleMyPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.store.listPlans(currentUser(r).ID)))
}

// handleGetPlan は学習プランを返す。
// GET /learning-plans/{id}
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid learning plan id")
		return
	}
	p, ok := s.store.plan(id)
	if !ok {
		writeNotFound(w, "Learning plan")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreatePlan は学習プランを作成し、フォロワーに通知する。
// POST /learning-plans
func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	in, ok := decodePlanInput(w, r)
	if !ok {
		return
	}
	me := currentUser(r)
	p, _ := s.store.savePlan(0, me, in)
	for _, follower := range s.store.followers(me.ID) {
		s.store.notify(follower, model.NotificationTypeLearningPlanShared,
			fmt.Sprintf("%s shared a learning plan: %s", me.Name, p.Title),
			fmt.Sprintf("/learning-plans/%d", p.ID), s.now())
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleUpdatePlan は学習プランを置き換える。
// PUT /learning-plans/{id}
func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid learning plan id")
		return
	}
	in, ok := decodePlanInput(w, r)
	if !ok {
		return
	}
	p, res := s.store.savePlan(id, currentUser(r), in)
	if writeResult(w, res, "Learning plan") {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePlan は学習プランを削除する。
// DELETE /learning-plans/{id}
func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeBadRequest(w, "Invalid learning plan id")
		return
	}
	if writeResult(w, s.store.deletePlan(id, currentUser(r).ID), "Learning plan") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodePlanInput(w http.ResponseWriter, r *http.Request) (model.LearningPlanInput, bool) {
	var in model.LearningPlanInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "Invalid request body")
		return in, false
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		writeBadRequest(w, "Title is required")
		return in, false
	}
	if len(in.Steps) == 0 {
		writeBadRequest(w, "A learning plan needs at least one step")
		return in, false
	}
	for i, st := range in.Steps {
		if strings.TrimSpace(st.Title) == "" {
			writeBadRequest(w, fmt.Sprintf("Step %d has no title", i+1))
			return in, false
		}
	}
	return in, true
}

// --- 通知 ---

// handleListNotifications は通知を新しい順に返す。
// GET /notifications
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.store.listNotifications(currentUser(r).ID)))
}

// handleUnreadCount は未読件数を数値のみで返す。
// GET /notifications/unread-count
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.unreadCount(currentUser(r).ID))
}

// handleMarkAllRead は全通知を既読にする。
// POST /notifications/mark-all-read
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.store.markAllRead(currentUser(r).ID)
	w.WriteHeader(http.StatusOK)
}

// handleClearRead は既読の通知を削除する。
// DELETE /notifications/clear-read
func (s *Server) handleClearRead(w http.ResponseWriter, r *http.Request) {
	s.store.clearRead(currentUser(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

// --- ファイル ---

// handleUpload はファイルを保存して{fileUrl}を返す。
// POST /files/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeBadRequest(w, "Invalid multipart body")
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeBadRequest(w, "file part is required")
		return
	}
	fileURL, err := s.saveUpload(files[0], r.FormValue("category"))
	if err != nil {
		s.logger.Error("upload failed", "error", err)
		writeInternalServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, model.FileUploadResponse{FileURL: fileURL})
}

// handleServeFile は保存済みのファイルを返す。
// GET /files/{name}
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	f, ok := s.store.file(chi.URLParam(r, "name"))
	if !ok {
		writeNotFound(w, "File")
		return
	}
	w.Header().Set("Content-Type", f.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.data)))
	w.WriteHeader(http.StatusOK)
	w.Write(f.data)
}
