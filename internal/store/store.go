// Package store 定义持久化层的接口。
//
// PostgreSQL 的实现位于 repository 包，本包同时提供一个内存实现。
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrConflict 表示违反了唯一约束或外键约束
	ErrConflict = errors.New("store: conflict")
	// ErrStaleVersion 表示乐观锁版本号不匹配
	ErrStaleVersion = errors.New("store: stale version")
)

type Store interface {
	Companies() CompanyStore
	Users() UserStore
	WorkOrders() WorkOrderStore
	Participants() ParticipantStore
	AuditLogs() AuditLogStore

	// Atomic 在同一个事务中执行 fn，fn 返回错误时所有修改都会被回滚
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type CompanyStore interface {
	Create(ctx context.Context, company *domain.Company) error
	Get(ctx context.Context, id int64) (*domain.Company, error)
	GetByEnrollmentCode(ctx context.Context, code string) (*domain.Company, error)
	ExistsByEnrollmentCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, page domain.Page) ([]*domain.Company, error)
	Update(ctx context.Context, company *domain.Company) error
	Delete(ctx context.Context, id int64) error
}

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) ([]*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsernameInCompany(ctx context.Context, username string, companyID int64) (bool, error)
	ExistsByEmailInCompany(ctx context.Context, email string, companyID int64) (bool, error)
	ExistsInCompany(ctx context.Context, companyID int64) (bool, error)
	List(ctx context.Context, page domain.Page) ([]*domain.User, error)
	ListByCompany(ctx context.Context, companyID int64, page domain.Page) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type WorkOrderStore interface {
	Create(ctx context.Context, order *domain.WorkOrder) error
	Get(ctx context.Context, id int64) (*domain.WorkOrder, error)
	List(ctx context.Context, page domain.Page) ([]*domain.WorkOrder, error)
	ListByCompany(ctx context.Context, companyID int64, page domain.Page) ([]*domain.WorkOrder, error)
	ListByCompanyAndCreator(ctx context.Context, companyID, creatorID int64, page domain.Page) ([]*domain.WorkOrder, error)
	UpdateStatus(ctx context.Context, order *domain.WorkOrder) error
}

type ParticipantStore interface {
	Create(ctx context.Context, participant *domain.Participant) error
	Get(ctx context.Context, id int64) (*domain.Participant, error)
	ActiveExists(ctx context.Context, workOrderID, userID int64) (bool, error)
	ListActive(ctx context.Context, workOrderID int64) ([]*domain.Participant, error)
	MarkLeft(ctx context.Context, id int64, at time.Time) error
}

// AuditLogStore 只允许追加和读取
type AuditLogStore interface {
	Append(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByWorkOrder(ctx context.Context, workOrderID int64, page domain.Page) ([]*domain.AuditLogEntry, error)
}
