// Package service 包含工单系统的核心业务逻辑：企业目录、用户身份、认证、工单生命周期和审计日志。
//
// 所有操作都显式接收当前操作用户，不从上下文中隐式读取。
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/events"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/obs"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/policy"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/security"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

type TokenCodec interface {
	Issue(sub security.Subject) (string, *security.AuthClaims, error)
	Verify(token string) (*security.AuthClaims, error)
}

type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type core struct {
	store           store.Store
	hasher          PasswordHasher
	tokens          TokenCodec
	denylist        TokenDenylist
	publisher       events.Publisher
	uniquenessScope string
	defaultLimit    int
	maxLimit        int
	now             func() time.Time
}

type Service struct {
	Companies  *CompanyService
	Users      *UserService
	Auth       *AuthService
	WorkOrders *WorkOrderService
}

type Option func(*core)

func WithClock(now func() time.Time) Option {
	return func(c *core) {
		c.now = now
	}
}

func WithDenylist(d TokenDenylist) Option {
	return func(c *core) {
		c.denylist = d
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(c *core) {
		c.publisher = p
	}
}

// WithUniquenessScope 设置用户名和邮箱的唯一性范围，取值为 config.UniquenessScopeCompany 或 config.UniquenessScopeGlobal
func WithUniquenessScope(scope string) Option {
	return func(c *core) {
		c.uniquenessScope = scope
	}
}

func WithPagination(defaultLimit, maxLimit int) Option {
	return func(c *core) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	}
}

func New(st store.Store, hasher PasswordHasher, tokens TokenCodec, opts ...Option) *Service {
	c := &core{
		store:           st,
		hasher:          hasher,
		tokens:          tokens,
		publisher:       events.NopPublisher{},
		uniquenessScope: config.UniquenessScopeCompany,
		defaultLimit:    50,
		maxLimit:        200,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	companies := &CompanyService{c: c}
	users := &UserService{c: c, companies: companies}
	return &Service{
		Companies:  companies,
		Users:      users,
		Auth:       &AuthService{c: c, users: users},
		WorkOrders: &WorkOrderService{c: c},
	}
}

func (c *core) page(p domain.Page) domain.Page {
	return p.Normalize(c.defaultLimit, c.maxLimit)
}

// authorize 调用层级策略，拒绝时记录指标
func (c *core) authorize(actor *domain.User, req policy.Request) error {
	d := policy.Authorize(req)
	if d.Allowed {
		return nil
	}

	obs.ObservePolicyDenial(d.Rule)
	slog.Info("层级策略拒绝了操作", "actorId", actor.ID, "actorLevel", actor.Level, "targetLevel", req.TargetLevel, "rule", d.Rule)
	return d.Err()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// notFound 将存储层的 ErrNotFound 转换为业务错误，其他错误原样返回
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(format, args...)
	}
	return err
}

func stringPtr(s string) *string {
	return &s
}
