package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/service"
)

func (h *Handler) setTokenCookie(w http.ResponseWriter, value string, expiration time.Time) {
	// 通过 http-only 的 cookie 返回给客户端
	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    value,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username       string `json:"username" validate:"required"`
		Password       string `json:"password" validate:"required"`
		EnrollmentCode string `json:"enrollmentCode"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	result, err := h.services.Auth.Login(r.Context(), service.LoginInput{
		Username:       req.Username,
		Password:       req.Password,
		EnrollmentCode: req.EnrollmentCode,
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindForbidden {
			h.unauthorized(w, r, domain.MessageOf(err))
			return
		}
		h.serviceError(w, r, err)
		return
	}

	h.setTokenCookie(w, result.Token, result.ExpiresAt)

	h.successResponse(w, r, http.StatusOK, "登录成功", map[string]any{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	})
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName       string `json:"fullName" validate:"required"`
		Username       string `json:"username" validate:"required"`
		Email          string `json:"email" validate:"required,email"`
		Password       string `json:"password" validate:"required,min=8"`
		EnrollmentCode string `json:"enrollmentCode" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.services.Users.Enroll(r.Context(), service.EnrollInput{
		FullName:       req.FullName,
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		EnrollmentCode: req.EnrollmentCode,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusCreated, "注册成功", user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Auth.Logout(r.Context(), tokenFrom(r)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.setTokenCookie(w, "", time.Now().Add(-time.Hour))

	h.successResponse(w, r, http.StatusOK, "登出成功", nil)
}
