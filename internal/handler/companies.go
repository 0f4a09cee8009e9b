package handler

import (
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/utils"
)

const enrollmentCodeLength = 8

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name" validate:"required"`
		EnrollmentCode string `json:"enrollmentCode" validate:"omitempty,max=64"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 未指定邀请码时随机生成一个
	code := strings.TrimSpace(req.EnrollmentCode)
	if code == "" {
		code = utils.GenerateEnrollmentCode(enrollmentCodeLength)
	}

	company, err := h.services.Companies.CreateCompany(r.Context(), req.Name, code)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusCreated, "企业创建成功", company)
}

func (h *Handler) GetAllCompanies(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageFrom(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	companies, err := h.services.Companies.ListAll(r.Context(), page)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取企业列表成功", companies)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	company, err := h.services.Companies.FindByID(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取企业信息成功", company)
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var req struct {
		Name string `json:"name" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	company, err := h.services.Companies.Update(r.Context(), id, req.Name)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "更新企业信息成功", company)
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.services.Companies.Delete(r.Context(), id); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "删除企业成功", nil)
}
