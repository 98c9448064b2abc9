package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/model"
)

// defaultNotificationsPerPage は通知一覧の1回の取得件数（デフォルト）。
const defaultNotificationsPerPage = 50

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	// List はIdentityの通知一覧を作成日時の降順で返す。
	List(ctx context.Context, identityID string, limit int) ([]*model.Notification, error)
	// MarkRead は指定Identityが所有する通知を既読にする。
	MarkRead(ctx context.Context, identityID, notificationID string) error
	// CountUnread はIdentityの未読通知数を返す。
	CountUnread(ctx context.Context, identityID string) (int, error)
}

// NotificationHandler は通知のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// notificationResponse は通知のAPIレスポンス。
type notificationResponse struct {
	ID         string     `json:"id"`
	TenderID   string     `json:"tender_id"`
	Title      string     `json:"title"`
	MatchScore int        `json:"match_score"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// notificationListResponse は通知一覧のレスポンス。
type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
}

// unreadCountResponse は未読通知数のレスポンス。
type unreadCountResponse struct {
	Count int `json:"count"`
}

// ListNotifications は通知一覧を取得する。
// GET /api/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notifications, err := h.service.List(r.Context(), identityID, defaultNotificationsPerPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := notificationListResponse{Notifications: make([]notificationResponse, len(notifications))}
	for i, n := range notifications {
		resp.Notifications[i] = notificationResponse{
			ID:         n.ID,
			TenderID:   n.TenderID,
			Title:      n.Title,
			MatchScore: n.MatchScore,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
			ReadAt:     n.ReadAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// MarkNotificationRead は通知を既読にする。
// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notificationID := chi.URLParam(r, "id")

	if err := h.service.MarkRead(r.Context(), identityID, notificationID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnreadCount は未読通知数を取得する。
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	count, err := h.service.CountUnread(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(unreadCountResponse{Count: count})
}
