package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const notificationColumns = `id, company_id, user_id, type, title, message, payload, is_read, read_at, created_at`

var notificationCopyColumns = []string{"company_id", "user_id", "type", "title", "message", "payload", "is_read", "created_at"}

// copier は pgx.Tx と pgxpool.Pool が実装する COPY 用インターフェースです。
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// NotificationRepository は PostgreSQL を利用した通知の永続化実装です。
type NotificationRepository struct {
	pool pgdb.Queryer
}

// NewNotificationRepository は NotificationRepository を生成します。
func NewNotificationRepository(pool pgdb.Queryer) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// CreateMany は受信者ごとの通知をまとめて保存し、保存件数を返します。
func (r *NotificationRepository) CreateMany(ctx context.Context, notifications []*notification.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(notifications))
	for _, n := range notifications {
		payload := n.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		rows = append(rows, []any{n.CompanyID, n.UserID, string(n.Type), n.Title, n.Message, payload, n.IsRead, n.CreatedAt})
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if c, ok := exec.(copier); ok {
		count, err := c.CopyFrom(ctx, pgx.Identifier{"notifications"}, notificationCopyColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, err
		}
		return int(count), nil
	}

	for _, values := range rows {
		if _, err := exec.Exec(ctx, `
            INSERT INTO notifications (company_id, user_id, type, title, message, payload, is_read, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `, values...); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

// List は利用者宛ての通知を新しい順に返します。
func (r *NotificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	var where whereBuilder
	where.add("company_id = ?", filter.CompanyID)
	where.add("user_id = ?", filter.UserID)
	if filter.UnreadOnly {
		where.conditions = append(where.conditions, "NOT is_read")
	}

	query := `
        SELECT ` + notificationColumns + `
          FROM notifications` + where.clause() + `
         ORDER BY created_at DESC, id DESC` + where.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, where.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	items := make([]*notification.Notification, 0, filter.Limit+1)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, "", err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	items, next := paging.Trim(items, filter.Limit, filter.Offset)
	return items, next, nil
}

// CountUnread は未読件数を返します。
func (r *NotificationRepository) CountUnread(ctx context.Context, companyID, userID string) (int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var count int
	if err := exec.QueryRow(ctx, `
        SELECT count(*)
          FROM notifications
         WHERE company_id = $1 AND user_id = $2 AND NOT is_read
    `, companyID, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkAsRead は利用者宛ての通知を既読にします。既読済みでも成功します。
func (r *NotificationRepository) MarkAsRead(ctx context.Context, companyID, userID, id string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE notifications
           SET is_read = TRUE,
               read_at = COALESCE(read_at, $1)
         WHERE company_id = $2 AND user_id = $3 AND id = $4
    `, at, companyID, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

// MarkAllAsRead は利用者宛ての未読通知をすべて既読にし、更新件数を返します。
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, companyID, userID string, at time.Time) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE notifications
           SET is_read = TRUE,
               read_at = $1
         WHERE company_id = $2 AND user_id = $3 AND NOT is_read
    `, at, companyID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n   notification.Notification
		typ string
	)
	if err := row.Scan(&n.ID, &n.CompanyID, &n.UserID, &typ, &n.Title, &n.Message, &n.Payload, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotificationNotFound
		}
		return nil, err
	}
	n.Type = notification.Type(typ)
	return &n, nil
}
