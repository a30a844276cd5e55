package handler

import (
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/gin-gonic/gin"
)

// DocumentReviewHandler 文档质量审核处理器
type DocumentReviewHandler struct {
	svc *service.DocumentReviewService
}

func NewDocumentReviewHandler(svc *service.DocumentReviewService) *DocumentReviewHandler {
	return &DocumentReviewHandler{svc: svc}
}

// Review 审核证据文档
// POST /api/v1/evidence-items/:id/review
func (h *DocumentReviewHandler) Review(c *gin.Context) {
	var req service.ReviewDocumentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Review(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, result)
}

// Get 证据文档审核结果
// GET /api/v1/evidence-items/:id/review
func (h *DocumentReviewHandler) Get(c *gin.Context) {
	review, err := h.svc.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, review)
}

// DocumentTypes 已配置检查清单的文档类型
// GET /api/v1/document-checklists
func (h *DocumentReviewHandler) DocumentTypes(c *gin.Context) {
	types, err := h.svc.DocumentTypes(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": types})
}

// Checklist 文档类型的检查清单
// GET /api/v1/document-checklists/:type
func (h *DocumentReviewHandler) Checklist(c *gin.Context) {
	items, err := h.svc.Checklist(c.Request.Context(), actor(c), c.Param("type"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
