package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

type auditLogRepository struct {
	r *Repository
}

func (a *auditLogRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	ctx, cancel := a.r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO work_order_audit_logs (work_order_id, actor_id, action, before_state, after_state, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
		RETURNING id, created_at
	`

	var createdAt sql.NullTime
	if !entry.CreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: entry.CreatedAt, Valid: true}
	}

	args := []any{entry.WorkOrderID, entry.ActorID, entry.Action, entry.Before, entry.After, createdAt}
	if err := a.r.db.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return translateError(err)
	}

	return nil
}

// ListByWorkOrder 按时间倒序返回工单的审计记录
func (a *auditLogRepository) ListByWorkOrder(ctx context.Context, workOrderID int64, page domain.Page) ([]*domain.AuditLogEntry, error) {
	ctx, cancel := a.r.withTimeout(ctx)
	defer cancel()

	limit, offset := limitOffset(page.Limit, page.Offset)
	query := `
		SELECT id, work_order_id, actor_id, action, before_state, after_state, created_at
		FROM work_order_audit_logs
		WHERE work_order_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := a.r.db.QueryContext(ctx, query, workOrderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.AuditLogEntry, 0)
	for rows.Next() {
		entry := &domain.AuditLogEntry{}
		var before, after sql.NullString

		dst := []any{&entry.ID, &entry.WorkOrderID, &entry.ActorID, &entry.Action, &before, &after, &entry.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if before.Valid {
			entry.Before = &before.String
		}
		if after.Valid {
			entry.After = &after.String
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
