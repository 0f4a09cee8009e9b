package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

type CompanyService struct {
	c *core
}

func (s *CompanyService) CreateCompany(ctx context.Context, name, enrollmentCode string) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	enrollmentCode = strings.TrimSpace(enrollmentCode)
	if name == "" {
		return nil, domain.Validation("企业名称不能为空")
	}
	if enrollmentCode == "" {
		return nil, domain.Validation("企业邀请码不能为空")
	}

	company := &domain.Company{
		Name:           name,
		EnrollmentCode: enrollmentCode,
	}

	err := s.c.store.Atomic(ctx, func(tx store.Store) error {
		exists, err := tx.Companies().ExistsByEnrollmentCode(ctx, enrollmentCode)
		if err != nil {
			return err
		}
		if exists {
			return domain.Conflict("企业邀请码 '%s' 已被注册", enrollmentCode)
		}

		if err := tx.Companies().Create(ctx, company); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return domain.Conflict("企业邀请码 '%s' 已被注册", enrollmentCode)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return company, nil
}

func (s *CompanyService) FindByID(ctx context.Context, id int64) (*domain.Company, error) {
	company, err := s.c.store.Companies().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "企业不存在：%d", id)
	}
	return company, nil
}

func (s *CompanyService) FindByEnrollmentCode(ctx context.Context, code string) (*domain.Company, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.Validation("企业邀请码不能为空")
	}

	company, err := s.c.store.Companies().GetByEnrollmentCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "邀请码 '%s' 对应的企业不存在", code)
	}
	return company, nil
}

// ListAll 不做权限限制，调用方负责只允许系统管理员访问
func (s *CompanyService) ListAll(ctx context.Context, page domain.Page) ([]*domain.Company, error) {
	return s.c.store.Companies().List(ctx, s.c.page(page))
}

// Update 只允许修改企业名称，邀请码不可变
func (s *CompanyService) Update(ctx context.Context, id int64, name string) (*domain.Company, error) {
	name = strings.TrimSpace(name)

	var company *domain.Company
	err := s.c.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		company, err = tx.Companies().Get(ctx, id)
		if err != nil {
			return notFound(err, "企业不存在：%d", id)
		}
		if name == "" {
			return domain.Validation("企业名称不能为空")
		}

		company.Name = name
		if err := tx.Companies().Update(ctx, company); err != nil {
			if errors.Is(err, store.ErrStaleVersion) {
				return domain.Conflict("企业信息已被修改，请重试")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return company, nil
}

func (s *CompanyService) Delete(ctx context.Context, id int64) error {
	return s.c.store.Atomic(ctx, func(tx store.Store) error {
		if _, err := tx.Companies().Get(ctx, id); err != nil {
			return notFound(err, "企业不存在：%d", id)
		}

		hasUsers, err := tx.Users().ExistsInCompany(ctx, id)
		if err != nil {
			return err
		}
		if hasUsers {
			return domain.Conflict("企业下仍有关联用户，无法删除")
		}

		if err := tx.Companies().Delete(ctx, id); err != nil {
			switch {
			case errors.Is(err, store.ErrConflict):
				return domain.Conflict("企业下仍有关联用户，无法删除")
			case errors.Is(err, store.ErrNotFound):
				return domain.NotFound("企业不存在：%d", id)
			default:
				return err
			}
		}
		return nil
	})
}
