package model

// NotificationType は通知の種別。未知の値はそのまま保持する。
type NotificationType string

const (
	NotificationTypeLike               NotificationType = "LIKE"
	NotificationTypeComment            NotificationType = "COMMENT"
	NotificationTypeFollow             NotificationType = "FOLLOW"
	NotificationTypeLearningPlanShared NotificationType = "LEARNING_PLAN_SHARED"
)

// Notification はユーザー宛ての通知を表す。
type Notification struct {
	ID        int64            `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt LocalDateTime    `json:"createdAt"`
}
