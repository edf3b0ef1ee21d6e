package notification

import (
	"context"
	"time"
)

// Repository は通知の永続化を行うインターフェースです。
type Repository interface {
	CreateMany(ctx context.Context, notifications []*Notification) (int, error)
	List(ctx context.Context, filter ListFilter) ([]*Notification, string, error)
	CountUnread(ctx context.Context, companyID, userID string) (int, error)
	// MarkAsRead は userID 宛ての通知のみを既読にします。該当が無ければ ErrNotificationNotFound です。
	MarkAsRead(ctx context.Context, companyID, userID, id string, at time.Time) error
	MarkAllAsRead(ctx context.Context, companyID, userID string, at time.Time) (int64, error)
}

// ListFilter は通知一覧の検索条件です。
type ListFilter struct {
	CompanyID  string
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// RecipientSource は会社の通知宛先となる有効なユーザーを列挙します。
type RecipientSource interface {
	ActiveUserIDs(ctx context.Context, companyID string) ([]string, error)
}
