package mockserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/skillshare/internal/model"
)

// userRecord はユーザーとパスワードハッシュ、フォロー関係を保持する。
type userRecord struct {
	user         model.User
	passwordHash []byte
	following    map[int64]struct{}
}

// postRecord は投稿といいねしたユーザーの集合を保持する。
type postRecord struct {
	post    model.Post
	ownerID int64
	likes   map[int64]struct{}
}

type planRecord struct {
	plan    model.LearningPlan
	ownerID int64
}

type notificationRecord struct {
	notification model.Notification
	userID       int64
}

type fileRecord struct {
	data        []byte
	contentType string
	category    string
}

// store はモックバックエンドのインメモリストア。すべての操作はゴルーチンセーフ。
type store struct {
	mu sync.Mutex

	nextID        int64
	users         map[int64]*userRecord
	emails        map[string]int64
	posts         map[int64]*postRecord
	plans         map[int64]*planRecord
	notifications map[int64]*notificationRecord
	files         map[string]*fileRecord
}

func newStore() *store {
	return &store{
		users:         make(map[int64]*userRecord),
		emails:        make(map[string]int64),
		posts:         make(map[int64]*postRecord),
		plans:         make(map[int64]*planRecord),
		notifications: make(map[int64]*notificationRecord),
		files:         make(map[string]*fileRecord),
	}
}

// id は新しいIDを採番する。呼び出し元はロックを保持していること。
func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// createUser はユーザーを登録する。メールアドレスが登録済みの場合はfalseを返す。
func (s *store) createUser(name, email string, hash []byte) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(email)
	if _, exists := s.emails[key]; exists {
		return model.User{}, false
	}
	u := model.User{ID: s.id(), Name: name, Email: strings.TrimSpace(email)}
	s.users[u.ID] = &userRecord{user: u, passwordHash: hash, following: make(map[int64]struct{})}
	s.emails[key] = u.ID
	return u, true
}

// credentials はメールアドレスに対応するユーザーとパスワードハッシュを返す。
func (s *store) credentials(email string) (model.User, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return model.User{}, nil, false
	}
	rec := s.users[id]
	return rec.user, rec.passwordHash, true
}

func (s *store) user(id int64) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return model.User{}, false
	}
	return rec.user, true
}

// updateUser はfnでユーザーを更新する。投稿・学習プランに埋め込まれた作者情報も更新する。
func (s *store) updateUser(id int64, fn func(u *model.User)) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return model.User{}, false
	}
	fn(&rec.user)
	for _, p := range s.posts {
		if p.ownerID == id {
			u := rec.user
			p.post.User = &u
		}
	}
	for _, p := range s.plans {
		if p.ownerID == id {
			u := rec.user
			p.plan.User = &u
		}
	}
	return rec.user, true
}

// searchUsers は名前またはメールアドレスの部分一致でユーザーを返す。
func (s *store) searchUsers(query string) []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	users := []model.User{}
	for _, rec := range s.users {
		if strings.Contains(strings.ToLower(rec.user.Name), q) ||
			strings.Contains(strings.ToLower(rec.user.Email), q) {
			users = append(users, rec.user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// setFollow はフォロー関係を設定する。新たにフォローした場合はtrueを返す。
func (s *store) setFollow(followerID, followeeID int64, follow bool) (changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok1 := s.users[followerID]
	_, ok2 := s.users[followeeID]
	if !ok1 || !ok2 {
		return false, false
	}
	_, already := rec.following[followeeID]
	if follow {
		rec.following[followeeID] = struct{}{}
		return !already, true
	}
	delete(rec.following, followeeID)
	return already, true
}

// followers は指定ユーザーをフォローしているユーザーのIDを返す。
func (s *store) followers(userID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, rec := range s.users {
		if _, ok := rec.following[userID]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *store) createPost(owner model.User, content string, typ model.PostType, mediaURLs []string, now time.Time) model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := owner
	p := model.Post{
		ID:        s.id(),
		Content:   content,
		Type:      typ,
		User:      &u,
		CreatedAt: model.NewLocalDateTime(now),
		MediaURLs: append([]string{}, mediaURLs...),
		Comments:  []model.Comment{},
	}
	rec := &postRecord{post: p, ownerID: owner.ID, likes: make(map[int64]struct{})}
	s.posts[p.ID] = rec
	return s.postViewLocked(rec)
}

// postViewLocked はいいねの集合をLikesに展開した投稿を返す。呼び出し元はロックを保持していること。
func (s *store) postViewLocked(rec *postRecord) model.Post {
	p := rec.post
	p.MediaURLs = append([]string{}, rec.post.MediaURLs...)
	p.Likes = make([]model.User, 0, len(rec.likes))
	for uid := range rec.likes {
		if u, ok := s.users[uid]; ok {
			p.Likes = append(p.Likes, u.user)
		}
	}
	sort.Slice(p.Likes, func(i, j int) bool { return p.Likes[i].ID < p.Likes[j].ID })
	return p
}

func (s *store) post(id int64) (model.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[id]
	if !ok {
		return model.Post{}, false
	}
	return s.postViewLocked(rec), true
}

// listPosts は新しい順に投稿を返す。viewerが0以外の場合はviewerとフォロー先の投稿に限定する。
func (s *store) listPosts(viewer int64) []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	var allowed map[int64]struct{}
	if viewer != 0 {
		allowed = map[int64]struct{}{viewer: {}}
		if rec, ok := s.users[viewer]; ok {
			for id := range rec.following {
				allowed[id] = struct{}{}
			}
		}
	}

	posts := []model.Post{}
	for _, rec := range s.posts {
		if allowed != nil {
			if _, ok := allowed[rec.ownerID]; !ok {
				continue
			}
		}
		posts = append(posts, s.postViewLocked(rec))
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt.Time) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt.Time)
	})
	return posts
}

// result は所有者チェックを伴うストア操作の結果。
type result int

const (
	resultOK result = iota
	resultNotFound
	resultForbidden
)

func (s *store) updatePost(id, userID int64, content string) (model.Post, result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[id]
	if !ok {
		return model.Post{}, resultNotFound
	}
	if rec.ownerID != userID {
		return model.Post{}, resultForbidden
	}
	rec.post.Content = content
	return s.postViewLocked(rec), resultOK
}

func (s *store) deletePost(id, userID int64) result {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[id]
	if !ok {
		return resultNotFound
	}
	if rec.ownerID != userID {
		return resultForbidden
	}
	delete(s.posts, id)
	return resultOK
}

// setLike はいいねを設定する。いいねは集合なので同じユーザーの重複は起きない。
// changedは状態が変わった場合にtrue。
func (s *store) setLike(postID, userID int64, like bool) (p model.Post, ownerID int64, changed bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.posts[postID]
	if !found {
		return model.Post{}, 0, false, false
	}
	_, already := rec.likes[userID]
	if like {
		rec.likes[userID] = struct{}{}
		changed = !already
	} else {
		delete(rec.likes, userID)
		changed = already
	}
	return s.postViewLocked(rec), rec.ownerID, changed, true
}

// savePlan は学習プランを作成（id==0）または置き換える。
func (s *store) savePlan(id int64, owner model.User, in model.LearningPlanInput) (model.LearningPlan, result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *planRecord
	if id != 0 {
		existing, ok := s.plans[id]
		if !ok {
			return model.LearningPlan{}, resultNotFound
		}
		if existing.ownerID != owner.ID {
			return model.LearningPlan{}, resultForbidden
		}
		rec = existing
	} else {
		u := owner
		rec = &planRecord{
			plan:    model.LearningPlan{ID: s.id(), Status: model.PlanStatusNotStarted, User: &u},
			ownerID: owner.ID,
		}
		s.plans[rec.plan.ID] = rec
	}

	rec.plan.Title = in.Title
	rec.plan.Description = in.Description
	rec.plan.TargetCompletionDate = in.TargetCompletionDate

	// 既存ステップの進捗は同じ位置のステップに引き継ぐ
	prev := rec.plan.Steps
	steps := make([]model.Step, 0, len(in.Steps))
	for i, st := range in.Steps {
		step := model.Step{
			Title:       st.Title,
			Description: st.Description,
			ResourceURL: st.ResourceURL,
			OrderIndex:  i,
			Status:      model.StepStatusNotStarted,
		}
		if i < len(prev) {
			step.ID = prev[i].ID
			step.Status = prev[i].Status
		} else {
			step.ID = s.id()
		}
		steps = append(steps, step)
	}
	rec.plan.Steps = steps
	return copyPlan(rec.plan), resultOK
}

func copyPlan(p model.LearningPlan) model.LearningPlan {
	p.Steps = append([]model.Step{}, p.Steps...)
	return p
}

func (s *store) plan(id int64) (model.LearningPlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.plans[id]
	if !ok {
		return model.LearningPlan{}, false
	}
	return copyPlan(rec.plan), true
}

// listPlans はID降順に学習プランを返す。ownerが0以外の場合はその所有者に限定する。
func (s *store) listPlans(owner int64) []model.LearningPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans := []model.LearningPlan{}
	for _, rec := range s.plans {
		if owner != 0 && rec.ownerID != owner {
			continue
		}
		plans = append(plans, copyPlan(rec.plan))
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID > plans[j].ID })
	return plans
}

func (s *store) deletePlan(id, userID int64) result {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.plans[id]
	if !ok {
		return resultNotFound
	}
	if rec.ownerID != userID {
		return resultForbidden
	}
	delete(s.plans, id)
	return resultOK
}

func (s *store) notify(userID int64, typ model.NotificationType, message, link string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := model.Notification{
		ID:        s.id(),
		Message:   message,
		Type:      typ,
		Link:      link,
		CreatedAt: model.NewLocalDateTime(now),
	}
	s.notifications[n.ID] = &notificationRecord{notification: n, userID: userID}
}

func (s *store) listNotifications(userID int64) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []model.Notification{}
	for _, rec := range s.notifications {
		if rec.userID == userID {
			list = append(list, rec.notification)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

func (s *store) unreadCount(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, rec := range s.notifications {
		if rec.userID == userID && !rec.notification.Read {
			n++
		}
	}
	return n
}

func (s *store) markAllRead(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.notifications {
		if rec.userID == userID {
			rec.notification.Read = true
		}
	}
}

func (s *store) clearRead(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.notifications {
		if rec.userID == userID && rec.notification.Read {
			delete(s.notifications, id)
		}
	}
}

func (s *store) putFile(name string, f *fileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = f
}

func (s *store) file(name string) (*fileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[name]
	return f, ok
}
