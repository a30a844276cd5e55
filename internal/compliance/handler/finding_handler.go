package handler

import (
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/gin-gonic/gin"
)

// FindingHandler 不符合项处理器
type FindingHandler struct {
	svc *service.FindingService
}

func NewFindingHandler(svc *service.FindingService) *FindingHandler {
	return &FindingHandler{svc: svc}
}

// Raise 手工登记不符合项
// POST /api/v1/findings
func (h *FindingHandler) Raise(c *gin.Context) {
	var req service.RaiseFindingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	finding, err := h.svc.Raise(c.Request.Context(), actor(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, finding)
}

// List 不符合项列表
// GET /api/v1/findings?audit_id=xxx&severity=xxx&status=xxx&page=1&page_size=20
func (h *FindingHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "audit_id", "severity", "status")

	items, total, err := h.svc.List(c.Request.Context(), actor(c), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page, pageSize)
}

// Get 不符合项详情
// GET /api/v1/findings/:id
func (h *FindingHandler) Get(c *gin.Context) {
	finding, err := h.svc.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, finding)
}

// MarkUnderReview OPEN → UNDER_REVIEW
// POST /api/v1/findings/:id/under-review
func (h *FindingHandler) MarkUnderReview(c *gin.Context) {
	finding, err := h.svc.MarkUnderReview(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, finding)
}
