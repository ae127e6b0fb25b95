package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/skillshare/internal/mockserver"
	"github.com/hitoshi/skillshare/internal/model"
	"github.com/hitoshi/skillshare/internal/security"
	"github.com/hitoshi/skillshare/internal/session"
)

// observed はモックバックエンドが受け取ったリクエストの記録。
type observed struct {
	Method      string
	Path        string
	RawQuery    string
	ContentType string
	Fields      []string // JSONのキーまたはマルチパートのフィールド名（ファイルパートを除く）
	FileParts   []string
}

// recorder はモックバックエンドの前段でリクエストを記録する。
type recorder struct {
	mu       sync.Mutex
	requests []observed
}

func (rec *recorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		o := observed{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
		}
		o.Fields, o.FileParts = fieldNames(o.ContentType, body)

		rec.mu.Lock()
		rec.requests = append(rec.requests, o)
		rec.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (rec *recorder) all() []observed {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]observed{}, rec.requests...)
}

func (rec *recorder) reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.requests = nil
}

func (rec *recorder) last(method, path string) (observed, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := len(rec.requests) - 1; i >= 0; i-- {
		if rec.requests[i].Method == method && rec.requests[i].Path == path {
			return rec.requests[i], true
		}
	}
	return observed{}, false
}

func fieldNames(contentType string, body []byte) ([]string, []string) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, nil
	}
	set := map[string]struct{}{}
	fileSet := map[string]struct{}{}
	switch mediaType {
	case "application/json":
		var obj map[string]json.RawMessage
		if json.Unmarshal(body, &obj) == nil {
			for k := range obj {
				set[k] = struct{}{}
			}
		}
	case "multipart/form-data":
		mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			if part.FileName() != "" {
				fileSet[part.FormName()] = struct{}{}
			} else {
				set[part.FormName()] = struct{}{}
			}
		}
	}
	return sortedKeys(set), sortedKeys(fileSet)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type backend struct {
	server *mockserver.Server
	url    string
	rec    *recorder
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	srv := mockserver.New(mockserver.Config{JWTSecret: "integration", Logger: discardLogger()})
	rec := &recorder{}
	ts := httptest.NewServer(rec.wrap(srv.Handler()))
	t.Cleanup(ts.Close)
	return &backend{server: srv, url: ts.URL, rec: rec}
}

// loginAs はユーザーを登録し、そのトークンで認証済みのクライアントを返す。
func (b *backend) loginAs(t *testing.T, name, email string) (*Client, *session.Session, model.User) {
	t.Helper()
	sess := session.New(session.NewMemoryTokenStore(""), discardLogger())
	c := newTestClient(t, b.url, sess)
	ctx := context.Background()

	if err := sess.Begin("", session.ReasonRegister); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	res, err := c.Auth.Register(ctx, name, email, "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := sess.Establish(ctx, res.Token, res.User); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	return c, sess, res.User
}

func TestIntegration_GetFeedDefaultPagination(t *testing.T) {
	b := newBackend(t)
	c, _, _ := b.loginAs(t, "Alice", "alice@example.com")
	b.rec.reset()

	page, err := c.Posts.GetFeed(context.Background(), Pagination{})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if page.Content == nil {
		t.Error("Content should be an empty slice, not nil")
	}

	o, ok := b.rec.last(http.MethodGet, "/posts/feed")
	if !ok {
		t.Fatal("no request to /posts/feed")
	}
	if o.RawQuery != "page=0&size=10" {
		t.Errorf("query = %q, want page=0&size=10", o.RawQuery)
	}
}

// TestIntegration_CreatePostEncoding は添付の有無でJSONとマルチパートが切り替わり、
// バックエンドから見たフィールド名が一致することを検証する。
func TestIntegration_CreatePostEncoding(t *testing.T) {
	b := newBackend(t)
	c, _, me := b.loginAs(t, "Alice", "alice@example.com")
	ctx := context.Background()
	in := model.PostInput{
		Content:   "Learning Go",
		Type:      model.PostTypeLearningProgress,
		MediaURLs: []string{"https://cdn.example.com/cover.png"},
	}

	jsonPost, err := c.Posts.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create (JSON): %v", err)
	}
	jsonReq, _ := b.rec.last(http.MethodPost, "/posts")

	mpPost, err := c.Posts.Create(ctx, in, &Attachment{FileName: "shot.png", ContentType: "image/png", Reader: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("Create (multipart): %v", err)
	}
	mpReq, _ := b.rec.last(http.MethodPost, "/posts")

	if !strings.HasPrefix(jsonReq.ContentType, "application/json") {
		t.Errorf("without files content type = %q, want JSON", jsonReq.ContentType)
	}
	if !strings.HasPrefix(mpReq.ContentType, "multipart/form-data") {
		t.Errorf("with files content type = %q, want multipart", mpReq.ContentType)
	}
	if strings.Join(jsonReq.Fields, ",") != strings.Join(mpReq.Fields, ",") {
		t.Errorf("field names differ: JSON %v, multipart %v", jsonReq.Fields, mpReq.Fields)
	}
	if strings.Join(mpReq.FileParts, ",") != "media" {
		t.Errorf("file parts = %v, want [media]", mpReq.FileParts)
	}

	if jsonPost.User == nil || jsonPost.User.ID != me.ID {
		t.Errorf("author = %+v, want id %d", jsonPost.User, me.ID)
	}
	if len(mpPost.MediaURLs) != 2 {
		t.Errorf("multipart media urls = %v, want 2 entries", mpPost.MediaURLs)
	}
}

// TestIntegration_CreatePostEncodingWithoutMediaURLs はメディアURLを指定せずに
// ファイルだけを添付した場合もフィールド名が一致することを検証する。
func TestIntegration_CreatePostEncodingWithoutMediaURLs(t *testing.T) {
	b := newBackend(t)
	c, _, _ := b.loginAs(t, "Alice", "alice@example.com")
	ctx := context.Background()
	in := model.PostInput{Content: "Only a screenshot", Type: model.PostTypeSkillSharing}

	if _, err := c.Posts.Create(ctx, in); err != nil {
		t.Fatalf("Create (JSON): %v", err)
	}
	jsonReq, _ := b.rec.last(http.MethodPost, "/posts")

	mpPost, err := c.Posts.Create(ctx, in, &Attachment{FileName: "shot.png", ContentType: "image/png", Reader: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("Create (multipart): %v", err)
	}
	mpReq, _ := b.rec.last(http.MethodPost, "/posts")

	if got, want := strings.Join(jsonReq.Fields, ","), "content,type"; got != want {
		t.Errorf("JSON fields = %q, want %q", got, want)
	}
	if strings.Join(jsonReq.Fields, ",") != strings.Join(mpReq.Fields, ",") {
		t.Errorf("field names differ: JSON %v, multipart %v", jsonReq.Fields, mpReq.Fields)
	}
	if len(mpPost.MediaURLs) != 1 {
		t.Errorf("media urls = %v, want 1 uploaded entry", mpPost.MediaURLs)
	}
}

func TestIntegration_CreatePostBlankContent(t *testing.T) {
	b := newBackend(t)
	c, _, _ := b.loginAs(t, "Alice", "alice@example.com")
	b.rec.reset()

	_, err := c.Posts.Create(context.Background(), model.PostInput{Content: "   "})
	if !errors.Is(err, model.ErrClientValidationFailure) {
		t.Fatalf("err = %v, want ClientValidationFailure", err)
	}
	if n := len(b.rec.all()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

// TestIntegration_LikeTwice は2回いいねしてもいいねが1件であることを検証する。
func TestIntegration_LikeTwice(t *testing.T) {
	b := newBackend(t)
	alice, _, _ := b.loginAs(t, "Alice", "alice@example.com")
	bob, _, bobUser := b.loginAs(t, "Bob", "bob@example.com")
	ctx := context.Background()

	post, err := alice.Posts.Create(ctx, model.PostInput{Content: "hello"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 2; i++ {
		liked, err := bob.Posts.Like(ctx, post.ID)
		if err != nil {
			t.Fatalf("Like #%d: %v", i+1, err)
		}
		if len(liked.Likes) != 1 || liked.Likes[0].ID != bobUser.ID {
			t.Fatalf("Like #%d likes = %+v, want only bob", i+1, liked.Likes)
		}
	}

	toggled, err := bob.Posts.ToggleLike(ctx, post, bobUser.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	// postは作成時点のスナップショットなのでbobは未いいね扱いとなり、Likeが選ばれる
	if len(toggled.Likes) != 1 {
		t.Errorf("likes after toggle = %d, want 1", len(toggled.Likes))
	}
	untoggled, err := bob.Posts.ToggleLike(ctx, toggled, bobUser.ID)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if len(untoggled.Likes) != 0 {
		t.Errorf("likes after second toggle = %d, want 0", len(untoggled.Likes))
	}

	count, err := alice.Notifications.GetUnreadCount(ctx)
	if err != nil {
		t.Fatalf("GetUnreadCount: %v", err)
	}
	if count != 1 {
		t.Errorf("unread = %d, want 1", count)
	}
}

func TestIntegration_LearningPlanRoundTrip(t *testing.T) {
	b := newBackend(t)
	c, _, _ := b.loginAs(t, "Alice", "alice@example.com")
	ctx := context.Background()

	created, err := c.LearningPlans.Create(ctx, model.LearningPlanInput{
		Title:       "Go",
		Description: "basics",
		Steps:       []model.StepInput{{Title: "A", Description: "a"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	page, err := c.LearningPlans.GetMyPlans(ctx, Pagination{})
	if err != nil {
		t.Fatalf("GetMyPlans: %v", err)
	}
	if len(page.Content) != 1 {
		t.Fatalf("plans = %d, want 1", len(page.Content))
	}
	got := page.Content[0]
	if got.ID != created.ID {
		t.Errorf("id = %d, want %d", got.ID, created.ID)
	}
	if len(got.Steps) != 1 || got.Steps[0].Title != "A" {
		t.Fatalf("steps = %+v, want [A]", got.Steps)
	}
	if got.Status != model.PlanStatusNotStarted {
		t.Errorf("status = %q, want NOT_STARTED", got.Status)
	}
	if got.Steps[0].Status != model.StepStatusNotStarted {
		t.Errorf("step status = %q, want NOT_STARTED", got.Steps[0].Status)
	}

	updated, err := c.LearningPlans.Update(ctx, created.ID, model.LearningPlanInput{
		Title: "Go",
		Steps: []model.StepInput{
			{Title: "A", Description: "a"},
			{Title: "", Description: "dropped"},
			{Title: "B", Description: "b", ResourceURL: "https://go.dev/doc/"},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.Steps) != 2 || updated.Steps[1].Title != "B" || updated.Steps[1].OrderIndex != 1 {
		t.Errorf("updated steps = %+v", updated.Steps)
	}

	if err := c.LearningPlans.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	page, _ = c.LearningPlans.GetAll(ctx, Pagination{})
	if len(page.Content) != 0 {
		t.Errorf("plans after delete = %d, want 0", len(page.Content))
	}
}

// TestIntegration_LearningPlanRejectedClientSide は有効なステップがない場合にリクエストしないことを検証する。
func TestIntegration_LearningPlanRejectedClientSide(t *testing.T) {
	b := newBackend(t)
	c, _, _ := b.loginAs(t, "Alice", "alice@example.com")
	b.rec.reset()

	tests := []struct {
		name string
		in   model.LearningPlanInput
	}{
		{"空タイトルのステップのみ", model.LearningPlanInput{Title: "Go", Steps: []model.StepInput{{Title: " ", Description: "a"}, {Title: "", Description: "b"}}}},
		{"ステップなし", model.LearningPlanInput{Title: "Go"}},
		{"プランのタイトルなし", model.LearningPlanInput{Steps: []model.StepInput{{Title: "A", Description: "a"}}}},
		{"内部ネットワークのリソースURL", model.LearningPlanInput{Title: "Go", Steps: []model.StepInput{{Title: "A", Description: "a", ResourceURL: "http://169.254.169.254/"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.LearningPlans.Create(context.Background(), tt.in)
			if !errors.Is(err, model.ErrClientValidationFailure) {
				t.Fatalf("err = %v, want ClientValidationFailure", err)
			}
		})
	}
	if n := len(b.rec.all()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

// TestIntegration_LoginThenCurrentUser はログイン後に再ログインなしで同じユーザーを取得できることを検証する。
func TestIntegration_LoginThenCurrentUser(t *testing.T) {
	b := newBackend(t)
	_, _, regUser := b.loginAs(t, "Alice", "alice@example.com")

	store := session.NewMemoryTokenStore("")
	sess := session.New(store, discardLogger())
	c := newTestClient(t, b.url, sess)
	ctx := context.Background()

	if err := sess.Begin("", session.ReasonLogin); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	res, err := c.Auth.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := sess.Establish(ctx, res.Token, res.User); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if persisted, _ := store.Load(ctx); persisted != res.Token {
		t.Fatal("token was not persisted")
	}

	b.rec.reset()
	me, err := c.Users.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if me.ID != regUser.ID {
		t.Errorf("id = %d, want %d", me.ID, regUser.ID)
	}
	for _, o := range b.rec.all() {
		if strings.HasPrefix(o.Path, "/auth/") {
			t.Errorf("unexpected auth request %s %s", o.Method, o.Path)
		}
	}
}

func TestIntegration_AuthFailures(t *testing.T) {
	b := newBackend(t)
	b.loginAs(t, "Alice", "alice@example.com")

	sess := session.New(session.NewMemoryTokenStore(""), discardLogger())
	c := newTestClient(t, b.url, sess)
	ctx := context.Background()

	_, err := c.Auth.Login(ctx, "alice@example.com", "wrong")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("Login err = %v, want InvalidCredentials", err)
	}

	_, err = c.Auth.Register(ctx, "Alice 2", "alice@example.com", "password123")
	if !errors.Is(err, model.ErrRegistrationConflict) {
		t.Errorf("Register err = %v, want RegistrationConflict", err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "Email already registered" {
		t.Errorf("message = %q, want backend message", apiErr.Message)
	}

	b.rec.reset()
	_, err = c.Auth.Register(ctx, "", "x@example.com", "pw")
	if !errors.Is(err, model.ErrClientValidationFailure) {
		t.Errorf("Register blank name err = %v, want ClientValidationFailure", err)
	}
	if n := len(b.rec.all()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

// TestIntegration_ExpiredToken は期限切れトークンの401でセッションが破棄されることを検証する。
func TestIntegration_ExpiredToken(t *testing.T) {
	b := newBackend(t)
	_, _, alice := b.loginAs(t, "Alice", "alice@example.com")

	expired, err := b.server.IssueToken(alice.ID, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	store := session.NewMemoryTokenStore("")
	sess := authenticatedSession(t, store, expired)
	c := newTestClient(t, b.url, sess)

	_, err = c.Notifications.GetAll(context.Background(), Pagination{})
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
	if store.Clears() != 1 {
		t.Errorf("clears = %d, want 1", store.Clears())
	}
	if tr := sess.LastTransition(); tr.From != session.Expired {
		t.Errorf("last transition = %+v, want settle from Expired", tr)
	}
}

func TestIntegration_UsersAndFollow(t *testing.T) {
	b := newBackend(t)
	alice, _, aliceUser := b.loginAs(t, "Alice", "alice@example.com")
	bob, _, _ := b.loginAs(t, "Bob", "bob@example.com")
	ctx := context.Background()

	found, err := bob.Users.Search(ctx, "ali")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].ID != aliceUser.ID {
		t.Fatalf("search = %+v", found)
	}
	none, err := bob.Users.Search(ctx, "nobody")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("search no match = %#v, %v; want empty slice", none, err)
	}

	if err := bob.Users.Follow(ctx, aliceUser.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if _, err := alice.Posts.Create(ctx, model.PostInput{Content: "for followers"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	feed, err := bob.Posts.GetFeed(ctx, Pagination{})
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if len(feed.Content) != 1 {
		t.Errorf("feed after follow = %d posts, want 1", len(feed.Content))
	}

	if err := bob.Users.Unfollow(ctx, aliceUser.ID); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	feed, _ = bob.Posts.GetFeed(ctx, Pagination{})
	if len(feed.Content) != 0 {
		t.Errorf("feed after unfollow = %d posts, want 0", len(feed.Content))
	}

	notes, err := alice.Notifications.GetAll(ctx, Pagination{})
	if err != nil {
		t.Fatalf("Notifications.GetAll: %v", err)
	}
	if len(notes.Content) != 1 || notes.Content[0].Type != model.NotificationTypeFollow {
		t.Errorf("notifications = %+v", notes.Content)
	}
	if err := alice.Notifications.MarkAllAsRead(ctx); err != nil {
		t.Fatalf("MarkAllAsRead: %v", err)
	}
	if err := alice.Notifications.ClearRead(ctx); err != nil {
		t.Fatalf("ClearRead: %v", err)
	}
	if n, _ := alice.Notifications.GetUnreadCount(ctx); n != 0 {
		t.Errorf("unread after clear = %d", n)
	}
}

func TestIntegration_ProfileAndFiles(t *testing.T) {
	b := newBackend(t)
	c, sess, _ := b.loginAs(t, "Alice", "alice@example.com")
	ctx := context.Background()

	u, err := c.Users.UpdateProfile(ctx, model.ProfileUpdate{Name: "Alice A.", Bio: "gopher"}, nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Name != "Alice A." || u.Bio != "gopher" {
		t.Errorf("profile = %+v", u)
	}
	if o, _ := b.rec.last(http.MethodPut, "/users/me"); !strings.HasPrefix(o.ContentType, "application/json") {
		t.Errorf("profile update content type = %q, want JSON", o.ContentType)
	}
	sess.UpdateUser(*u)

	u, err = c.Users.UpdateProfilePicture(ctx, &Attachment{FileName: "me.png", ContentType: "image/png", Reader: strings.NewReader("avatar")})
	if err != nil {
		t.Fatalf("UpdateProfilePicture: %v", err)
	}
	if o, _ := b.rec.last(http.MethodPost, "/users/me/profile-picture"); strings.Join(o.FileParts, ",") != "file" {
		t.Errorf("profile picture parts = %v, want [file]", o.FileParts)
	}
	if u.ProfilePicture == "" {
		t.Fatal("profile picture not set")
	}

	fileURL, err := c.Files.Upload(ctx, &Attachment{FileName: "notes.txt", Reader: strings.NewReader("hello file")}, "posts")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(fileURL, b.url+"/files/") {
		t.Errorf("file url = %q, want absolute URL under %s/files/", fileURL, b.url)
	}
	o, _ := b.rec.last(http.MethodPost, "/files/upload")
	if strings.Join(o.Fields, ",") != "category" || strings.Join(o.FileParts, ",") != "file" {
		t.Errorf("upload fields = %v parts = %v", o.Fields, o.FileParts)
	}

	var buf bytes.Buffer
	n, err := c.Files.Download(ctx, fileURL, &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len("hello file")) || buf.String() != "hello file" {
		t.Errorf("downloaded %d bytes: %q", n, buf.String())
	}
}

func TestIntegration_DownloadLimits(t *testing.T) {
	b := newBackend(t)
	sess := authenticatedSession(t, session.NewMemoryTokenStore(""), "unused")
	c, err := New(b.url, sess, Options{Logger: discardLogger(), DownloadMaxSize: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	other, _, _ := b.loginAs(t, "Alice", "alice@example.com")
	fileURL, err := other.Files.Upload(context.Background(), &Attachment{FileName: "big.bin", Reader: strings.NewReader("0123456789")}, "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, err = c.Files.Download(context.Background(), fileURL, io.Discard)
	if !errors.Is(err, ErrDownloadTooLarge) {
		t.Errorf("err = %v, want ErrDownloadTooLarge", err)
	}

	// バックエンド以外のホストはSSRF防止の対象となる
	_, err = c.Files.Download(context.Background(), "http://10.0.0.5/secret.png", io.Discard)
	if !errors.Is(err, model.ErrClientValidationFailure) {
		t.Errorf("err = %v, want ClientValidationFailure", err)
	}
	var blocked *security.BlockedURLError
	if !errors.As(err, &blocked) || blocked.Reason != security.ReasonPrivateAddress {
		t.Errorf("err = %v, want blocked with reason %s", err, security.ReasonPrivateAddress)
	}

	_, err = c.Files.Download(context.Background(), "http://media.localhost/a.png", io.Discard)
	if !errors.Is(err, security.ErrBlockedURL) {
		t.Errorf("err = %v, want ErrBlockedURL", err)
	}
}
