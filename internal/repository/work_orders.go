package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

const workOrderColumns = `id, company_id, creator_id, responsible_id, title, description, location, deadline, requirements, private_project, status, created_at, version`

type workOrderRepository struct {
	r *Repository
}

func scanWorkOrder(row rowScanner) (*domain.WorkOrder, error) {
	order := &domain.WorkOrder{}
	var (
		responsibleID sql.NullInt64
		deadline      sql.NullTime
	)

	dst := []any{&order.ID, &order.CompanyID, &order.CreatorID, &responsibleID, &order.Title, &order.Description, &order.Location, &deadline, &order.Requirements, &order.PrivateProject, &order.Status, &order.CreatedAt, &order.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if responsibleID.Valid {
		order.ResponsibleID = &responsibleID.Int64
	}
	if deadline.Valid {
		order.Deadline = &deadline.Time
	}

	return order, nil
}

func (w *workOrderRepository) queryWorkOrders(ctx context.Context, query string, args ...any) ([]*domain.WorkOrder, error) {
	ctx, cancel := w.r.withTimeout(ctx)
	defer cancel()

	rows, err := w.r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*domain.WorkOrder, 0)
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (w *workOrderRepository) Create(ctx context.Context, order *domain.WorkOrder) error {
	ctx, cancel := w.r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO work_orders (company_id, creator_id, responsible_id, title, description, location, deadline, requirements, private_project, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version
	`

	args := []any{order.CompanyID, order.CreatorID, order.ResponsibleID, order.Title, order.Description, order.Location, order.Deadline, order.Requirements, order.PrivateProject, order.Status, order.CreatedAt}
	if err := w.r.db.QueryRowContext(ctx, query, args...).Scan(&order.ID, &order.Version); err != nil {
		return translateError(err)
	}

	return nil
}

func (w *workOrderRepository) Get(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	ctx, cancel := w.r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE id = $1`

	order, err := scanWorkOrder(w.r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}

	return order, nil
}

func (w *workOrderRepository) List(ctx context.Context, page domain.Page) ([]*domain.WorkOrder, error) {
	limit, offset := limitOffset(page.Limit, page.Offset)
	query := `SELECT ` + workOrderColumns + ` FROM work_orders ORDER BY id LIMIT $1 OFFSET $2`
	return w.queryWorkOrders(ctx, query, limit, offset)
}

func (w *workOrderRepository) ListByCompany(ctx context.Context, companyID int64, page domain.Page) ([]*domain.WorkOrder, error) {
	limit, offset := limitOffset(page.Limit, page.Offset)
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE company_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
	return w.queryWorkOrders(ctx, query, companyID, limit, offset)
}

func (w *workOrderRepository) ListByCompanyAndCreator(ctx context.Context, companyID, creatorID int64, page domain.Page) ([]*domain.WorkOrder, error) {
	limit, offset := limitOffset(page.Limit, page.Offset)
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE company_id = $1 AND creator_id = $2 ORDER BY id LIMIT $3 OFFSET $4`
	return w.queryWorkOrders(ctx, query, companyID, creatorID, limit, offset)
}

// UpdateStatus 只修改状态，版本号不一致时返回 store.ErrStaleVersion
func (w *workOrderRepository) UpdateStatus(ctx context.Context, order *domain.WorkOrder) error {
	ctx, cancel := w.r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE work_orders
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`

	if err := w.r.db.QueryRowContext(ctx, query, order.Status, order.ID, order.Version).Scan(&order.Version); err != nil {
		if err = translateError(err); err == store.ErrNotFound {
			return store.ErrStaleVersion
		}
		return err
	}

	return nil
}
