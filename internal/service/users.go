package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/policy"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

type EnrollInput struct {
	FullName       string
	Username       string
	Email          string
	Password       string
	EnrollmentCode string
}

type CreateUserInput struct {
	FullName string
	Username string
	Email    string
	Password string
	Level    domain.HierarchyLevel
	Title    *string
}

// UpdateUserInput 中为 nil 的字段不会被修改
type UpdateUserInput struct {
	Level    *domain.HierarchyLevel
	Title    *string
	IsActive *bool
}

type UserService struct {
	c         *core
	companies *CompanyService
}

// NormalizeEmail 去掉首尾空白并转为小写，所有写入存储的邮箱都经过它
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type field struct {
	name  string
	value string
}

func requireFields(fields ...field) error {
	for _, f := range fields {
		if blank(f.value) {
			return domain.Validation("%s不能为空", f.name)
		}
	}
	return nil
}

// checkUniqueness 按配置的范围检查用户名和邮箱是否已被占用
func (s *UserService) checkUniqueness(ctx context.Context, tx store.Store, username, email string, companyID int64) error {
	var usernameTaken, emailTaken bool
	var err error

	switch s.c.uniquenessScope {
	case config.UniquenessScopeGlobal:
		if usernameTaken, err = tx.Users().ExistsByUsername(ctx, username); err != nil {
			return err
		}
		if emailTaken, err = tx.Users().ExistsByEmail(ctx, email); err != nil {
			return err
		}
		if usernameTaken {
			return domain.Conflict("用户名 '%s' 已被使用", username)
		}
		if emailTaken {
			return domain.Conflict("邮箱 '%s' 已被使用", email)
		}
	default:
		if usernameTaken, err = tx.Users().ExistsByUsernameInCompany(ctx, username, companyID); err != nil {
			return err
		}
		if emailTaken, err = tx.Users().ExistsByEmailInCompany(ctx, email, companyID); err != nil {
			return err
		}
		if usernameTaken {
			return domain.Conflict("用户名 '%s' 在该企业中已存在", username)
		}
		if emailTaken {
			return domain.Conflict("邮箱 '%s' 在该企业中已存在", email)
		}
	}

	return nil
}

func (s *UserService) insert(ctx context.Context, user *domain.User, password string) error {
	hash, err := s.c.hasher.Hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	return s.c.store.Atomic(ctx, func(tx store.Store) error {
		if err := s.checkUniqueness(ctx, tx, user.Username, user.Email, user.CompanyID); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return domain.Conflict("用户名或邮箱已被使用")
			}
			return err
		}
		return nil
	})
}

// Enroll 通过企业邀请码自助注册，新用户的层级固定为 COMMON
func (s *UserService) Enroll(ctx context.Context, in EnrollInput) (*domain.User, error) {
	company, err := s.companies.FindByEnrollmentCode(ctx, in.EnrollmentCode)
	if err != nil {
		return nil, err
	}

	if err := requireFields(
		field{"姓名", in.FullName},
		field{"用户名", in.Username},
		field{"邮箱", in.Email},
		field{"密码", in.Password},
	); err != nil {
		return nil, err
	}

	user := &domain.User{
		CompanyID: company.ID,
		FullName:  strings.TrimSpace(in.FullName),
		Username:  strings.TrimSpace(in.Username),
		Email:     NormalizeEmail(in.Email),
		Level:     domain.LevelCommon,
		IsActive:  true,
	}
	if err := s.insert(ctx, user, in.Password); err != nil {
		return nil, err
	}

	return user, nil
}

// CreateByAdmin 在操作者所在的企业中创建用户，层级受层级策略约束
func (s *UserService) CreateByAdmin(ctx context.Context, actor *domain.User, in CreateUserInput) (*domain.User, error) {
	if err := requireFields(
		field{"姓名", in.FullName},
		field{"用户名", in.Username},
		field{"邮箱", in.Email},
		field{"密码", in.Password},
	); err != nil {
		return nil, err
	}
	if !in.Level.Valid() {
		return nil, domain.Validation("无效的层级：%s", in.Level)
	}

	if err := s.c.authorize(actor, policy.Request{
		ActorLevel:  actor.Level,
		TargetLevel: in.Level,
	}); err != nil {
		return nil, err
	}

	user := &domain.User{
		CompanyID: actor.CompanyID,
		FullName:  strings.TrimSpace(in.FullName),
		Username:  strings.TrimSpace(in.Username),
		Email:     NormalizeEmail(in.Email),
		Level:     in.Level,
		Title:     trimmedTitle(in.Title),
		IsActive:  true,
	}
	if err := s.insert(ctx, user, in.Password); err != nil {
		return nil, err
	}

	return user, nil
}

func trimmedTitle(title *string) *string {
	if title == nil {
		return nil
	}
	t := strings.TrimSpace(*title)
	if t == "" {
		return nil
	}
	return &t
}

// UpdateByAdmin 部分更新用户的层级、职务和启用状态
func (s *UserService) UpdateByAdmin(ctx context.Context, actor *domain.User, targetID int64, in UpdateUserInput) (*domain.User, error) {
	var target *domain.User

	err := s.c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		target, err = tx.Users().Get(ctx, targetID)
		if err != nil {
			return notFound(err, "用户不存在：%d", targetID)
		}
		if !actor.CanSeeCompany(target.CompanyID) {
			return domain.Forbidden("不能修改其他企业的用户")
		}

		// 未指定新层级时按目标当前层级进行校验
		requested := target.Level
		if in.Level != nil {
			if !in.Level.Valid() {
				return domain.Validation("无效的层级：%s", *in.Level)
			}
			requested = *in.Level
		}

		self := actor.ID == target.ID
		current := target.Level
		if err := s.c.authorize(actor, policy.Request{
			ActorLevel:         actor.Level,
			TargetLevel:        requested,
			IsUpdate:           true,
			TargetCurrentLevel: &current,
			ActorTargetsSelf:   self,
		}); err != nil {
			return err
		}

		if in.Level != nil {
			target.Level = *in.Level
		}
		if in.Title != nil {
			target.Title = trimmedTitle(in.Title)
		}
		if in.IsActive != nil {
			if self && !*in.IsActive && !actor.IsSystemAdmin() {
				return domain.Validation("不能停用自己的账号")
			}
			target.IsActive = *in.IsActive
		}

		if err := tx.Users().Update(ctx, target); err != nil {
			if errors.Is(err, store.ErrStaleVersion) {
				return domain.Conflict("用户信息已被修改，请重试")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return target, nil
}

// GetAuthenticatedUser 根据令牌中的用户 ID 加载当前用户。
// 令牌有效但用户不存在说明会话与存储不一致，返回 IllegalState。
func (s *UserService) GetAuthenticatedUser(ctx context.Context, userID int64) (*domain.User, error) {
	if userID <= 0 {
		return nil, domain.IllegalState("当前会话没有已认证的用户")
	}

	user, err := s.c.store.Users().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.IllegalState("已认证的用户 %d 不存在", userID)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListForCompany(ctx context.Context, actor *domain.User, page domain.Page) ([]*domain.User, error) {
	page = s.c.page(page)
	if actor.IsSystemAdmin() {
		return s.c.store.Users().List(ctx, page)
	}
	return s.c.store.Users().ListByCompany(ctx, actor.CompanyID, page)
}

func (s *UserService) FindByIDScoped(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	user, err := s.c.store.Users().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "用户不存在：%d", id)
	}
	if !actor.CanSeeCompany(user.CompanyID) {
		return nil, domain.Forbidden("不能访问其他企业的用户")
	}
	return user, nil
}
