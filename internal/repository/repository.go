package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// dbtx 是 *sql.DB 和 *sql.Tx 的公共部分
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
	db     dbtx
	inTx   bool
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
		db:     dbpool,
	}
}

func (r *Repository) Companies() store.CompanyStore       { return &companyRepository{r} }
func (r *Repository) Users() store.UserStore               { return &userRepository{r} }
func (r *Repository) WorkOrders() store.WorkOrderStore     { return &workOrderRepository{r} }
func (r *Repository) Participants() store.ParticipantStore { return &participantRepository{r} }
func (r *Repository) AuditLogs() store.AuditLogStore       { return &auditLogRepository{r} }

// Atomic 开启一个事务并将绑定到该事务的 Repository 交给 fn，已经在事务中时直接复用
func (r *Repository) Atomic(ctx context.Context, fn func(tx store.Store) error) error {
	if r.inTx {
		return fn(r)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&Repository{cfg: r.cfg, dbpool: r.dbpool, db: tx, inTx: true}); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// translateError 将驱动层错误转换为 store 包定义的错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		}
	}

	return err
}

// limitOffset 将分页参数转换为查询参数，limit 为 0 时不限制
func limitOffset(limit, offset int) (any, int) {
	if limit <= 0 {
		return nil, offset
	}
	return limit, offset
}
