package model

// PostType は投稿の種別。
type PostType string

const (
	PostTypeSkillSharing     PostType = "SKILL_SHARING"
	PostTypeLearningProgress PostType = "LEARNING_PROGRESS"
	PostTypeLearningPlan     PostType = "LEARNING_PLAN"
)

// Valid はバックエンドが受け付ける投稿種別かどうかを返す。
func (t PostType) Valid() bool {
	switch t {
	case PostTypeSkillSharing, PostTypeLearningProgress, PostTypeLearningPlan:
		return true
	default:
		return false
	}
}

// Post はスキル共有の投稿を表す。
// MediaURLsは順序付き、LikesとCommentsは順序を持たない集合として扱う。
type Post struct {
	ID        int64         `json:"id"`
	Content   string        `json:"content"`
	Type      PostType      `json:"type"`
	User      *User         `json:"user,omitempty"`
	CreatedAt LocalDateTime `json:"createdAt"`
	MediaURLs []string      `json:"mediaUrls"`
	Likes     []User        `json:"likes"`
	Comments  []Comment     `json:"comments"`
}

// LikedBy は指定ユーザーがいいね済みかどうかを返す。
func (p *Post) LikedBy(userID int64) bool {
	for _, u := range p.Likes {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// Comment は投稿へのコメントを表す。
type Comment struct {
	ID        int64         `json:"id"`
	Content   string        `json:"content"`
	CreatedAt LocalDateTime `json:"createdAt"`
}

// PostInput は投稿作成リクエストのJSON表現。
// マルチパート送信時も同じフィールド名を使用する。
// MediaURLsが空の場合はどちらの形式でもフィールドを送らない。
type PostInput struct {
	Content   string   `json:"content"`
	Type      PostType `json:"type"`
	MediaURLs []string `json:"mediaUrls,omitempty"`
}
