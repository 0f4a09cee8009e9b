package handler

import (
	"net/http"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, http.StatusOK, "获取个人信息成功", actorFrom(r.Context()))
}
