package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/service"
)

func (h *Handler) GetAllUserInfo(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageFrom(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	users, err := h.services.Users.ListForCompany(r.Context(), actorFrom(r.Context()), page)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取用户列表成功", users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string  `json:"username" validate:"required"`
		FullName string  `json:"fullName" validate:"required"`
		Email    string  `json:"email" validate:"required,email"`
		Password string  `json:"password" validate:"required,min=8"`
		Level    string  `json:"level" validate:"required,oneof=COMMON SUPERVISOR MANAGER DIRECTOR SYSTEM_ADMIN"`
		Title    *string `json:"title" validate:"omitempty,max=100"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.services.Users.CreateByAdmin(r.Context(), actorFrom(r.Context()), service.CreateUserInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Level:    domain.HierarchyLevel(req.Level),
		Title:    req.Title,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusCreated, "用户创建成功", user)
}

func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	user, err := h.services.Users.FindByIDScoped(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取用户信息成功", user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var req struct {
		Level    *string `json:"level" validate:"omitempty,oneof=COMMON SUPERVISOR MANAGER DIRECTOR SYSTEM_ADMIN"`
		Title    *string `json:"title" validate:"omitempty,max=100"`
		IsActive *bool   `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	in := service.UpdateUserInput{
		Title:    req.Title,
		IsActive: req.IsActive,
	}
	if req.Level != nil {
		level := domain.HierarchyLevel(*req.Level)
		in.Level = &level
	}

	user, err := h.services.Users.UpdateByAdmin(r.Context(), actorFrom(r.Context()), id, in)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "更新用户信息成功", user)
}
