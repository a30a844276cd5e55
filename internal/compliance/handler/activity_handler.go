package handler

import (
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/gin-gonic/gin"
)

// ActivityHandler 操作日志处理器
type ActivityHandler struct {
	svc *service.ActivityService
}

func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// List 实体的操作日志
// GET /api/v1/activity/:entity_type/:entity_id?page=1&page_size=20
func (h *ActivityHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actor(c),
		c.Param("entity_type"), c.Param("entity_id"), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page, pageSize)
}
