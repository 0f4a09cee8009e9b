package service

import (
	"context"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/security"
)

type LoginInput struct {
	Username string
	Password string
	// EnrollmentCode 用于在多个企业存在同名用户时确定登录的企业，可以为空
	EnrollmentCode string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService struct {
	c     *core
	users *UserService
}

var errInvalidCredentials = domain.Forbidden("用户名不存在或密码错误")

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, domain.Validation("用户名和密码不能为空")
	}

	candidates, err := s.c.store.Users().FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(in.EnrollmentCode); code != "" {
		company, err := s.c.store.Companies().GetByEnrollmentCode(ctx, code)
		if err != nil {
			// 不暴露邀请码是否存在
			return nil, errInvalidCredentials
		}
		filtered := candidates[:0]
		for _, u := range candidates {
			if u.CompanyID == company.ID {
				filtered = append(filtered, u)
			}
		}
		candidates = filtered
	}

	switch len(candidates) {
	case 0:
		return nil, errInvalidCredentials
	case 1:
	default:
		return nil, domain.Validation("多个企业存在该用户名，请提供企业邀请码")
	}
	user := candidates[0]

	ok, err := s.c.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.Forbidden("用户已被停用")
	}

	token, claims, err := s.c.tokens.Issue(security.Subject{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Level:     user.Level,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// Authenticate 校验令牌并加载对应的用户
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, *security.AuthClaims, error) {
	if token == "" {
		return nil, nil, domain.Forbidden("用户未登录")
	}

	claims, err := s.c.tokens.Verify(token)
	if err != nil {
		return nil, nil, domain.Wrap(domain.KindForbidden, err, "无效的令牌")
	}

	if s.c.denylist != nil {
		revoked, err := s.c.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, err
		}
		if revoked {
			return nil, nil, domain.Forbidden("令牌已注销")
		}
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, domain.Wrap(domain.KindForbidden, err, "无效的令牌")
	}

	user, err := s.users.GetAuthenticatedUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, domain.Forbidden("用户已被停用")
	}

	return user, claims, nil
}

// Logout 将令牌加入注销名单直到其过期，无效的令牌直接忽略
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" || s.c.denylist == nil {
		return nil
	}

	claims, err := s.c.tokens.Verify(token)
	if err != nil {
		return nil
	}

	return s.c.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
