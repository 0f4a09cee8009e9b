package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/service"
)

func (h *Handler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title          string     `json:"title" validate:"required,max=200"`
		Description    string     `json:"description"`
		Location       string     `json:"location"`
		Deadline       *time.Time `json:"deadline"`
		Requirements   string     `json:"requirements"`
		PrivateProject bool       `json:"privateProject"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	order, err := h.services.WorkOrders.Create(r.Context(), actorFrom(r.Context()), service.CreateWorkOrderInput{
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		Deadline:       req.Deadline,
		Requirements:   req.Requirements,
		PrivateProject: req.PrivateProject,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusCreated, "工单创建成功", order)
}

func (h *Handler) GetAllWorkOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageFrom(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	orders, err := h.services.WorkOrders.List(r.Context(), actorFrom(r.Context()), page)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取工单列表成功", orders)
}

func (h *Handler) GetWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	order, err := h.services.WorkOrders.GetByIDScoped(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取工单成功", order)
}

// DeleteWorkOrder 并不真正删除工单，而是将其转为终止状态
func (h *Handler) DeleteWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	order, err := h.services.WorkOrders.Delete(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "工单已关闭", order)
}

func (h *Handler) GetWorkOrderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	page, err := h.pageFrom(r)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	entries, err := h.services.WorkOrders.History(r.Context(), actorFrom(r.Context()), id, page)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取工单历史成功", entries)
}

func (h *Handler) GetWorkOrderParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	participants, err := h.services.WorkOrders.ListParticipants(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取工单参与者成功", participants)
}

func (h *Handler) AddWorkOrderParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	var req struct {
		UserID int64 `json:"userId" validate:"required,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	participant, err := h.services.WorkOrders.AddParticipant(r.Context(), actorFrom(r.Context()), id, req.UserID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusCreated, "添加参与者成功", participant)
}

func (h *Handler) RemoveWorkOrderParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := h.pathID(r, "id")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	participantID, err := h.pathID(r, "participantId")
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.services.WorkOrders.RemoveParticipant(r.Context(), actorFrom(r.Context()), id, participantID); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "移除参与者成功", nil)
}
