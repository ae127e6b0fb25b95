package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hitoshi/skillshare/internal/model"
)

// NotificationsService は通知を扱う。
type NotificationsService service

// GetAll は通知を新しい順に返す。
func (s *NotificationsService) GetAll(ctx context.Context, p Pagination) (*model.Page[model.Notification], error) {
	var page model.Page[model.Notification]
	if err := s.client.call(ctx, http.MethodGet, "/notifications", p.Query(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetUnreadCount は未読通知の件数を返す。
// バックエンドは数値のみ、または{"count": n}を返す。
func (s *NotificationsService) GetUnreadCount(ctx context.Context) (int64, error) {
	var raw json.RawMessage
	if err := s.client.call(ctx, http.MethodGet, "/notifications/unread-count", nil, nil, &raw); err != nil {
		return 0, err
	}
	return decodeUnreadCount(raw)
}

func decodeUnreadCount(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, nil
	}

	var n model.UnreadCount
	if err := json.Unmarshal(raw, &n); err == nil {
		return int64(n), nil
	}

	var wrapped struct {
		Count *int64 `json:"count"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Count == nil {
		apiErr := model.NewServerFailureError(http.StatusOK, "未読件数の形式が不正です。")
		apiErr.Err = fmt.Errorf("unexpected unread count payload: %s", string(raw))
		return 0, apiErr
	}
	return *wrapped.Count, nil
}

// MarkAllAsRead はすべての通知を既読にする。
func (s *NotificationsService) MarkAllAsRead(ctx context.Context) error {
	return s.client.call(ctx, http.MethodPost, "/notifications/mark-all-read", nil, nil, nil)
}

// ClearRead は既読の通知を削除する。
func (s *NotificationsService) ClearRead(ctx context.Context) error {
	return s.client.call(ctx, http.MethodDelete, "/notifications/clear-read", nil, nil, nil)
}
