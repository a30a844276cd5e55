package handler

import (
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/gin-gonic/gin"
)

// AuditHandler 审核处理器
type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// Create 创建审核
// POST /api/v1/audits
func (h *AuditHandler) Create(c *gin.Context) {
	var req service.CreateAuditReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	audit, err := h.svc.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, audit)
}

// List 审核列表
// GET /api/v1/audits?status=xxx&type=xxx&keyword=xxx&page=1&page_size=20
func (h *AuditHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "status", "type", "keyword")

	items, total, err := h.svc.List(c.Request.Context(), actor(c), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page, pageSize)
}

// Get 审核详情
// GET /api/v1/audits/:id
func (h *AuditHandler) Get(c *gin.Context) {
	audit, err := h.svc.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, audit)
}

// UpdateScope 修改审核范围（仅 DRAFT 且未锁定）
// PUT /api/v1/audits/:id/scope
func (h *AuditHandler) UpdateScope(c *gin.Context) {
	var req service.UpdateScopeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	audit, err := h.svc.UpdateScope(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, audit)
}

// Start 开始审核
// POST /api/v1/audits/:id/start
func (h *AuditHandler) Start(c *gin.Context) {
	audit, err := h.svc.Start(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, audit)
}

// RecordResponse 指标评级（新增或修正）
// PUT /api/v1/audits/:id/responses
func (h *AuditHandler) RecordResponse(c *gin.Context) {
	var req service.RecordResponseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.RecordResponse(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}

// AddResponseInReview 复核阶段补评未评级指标
// POST /api/v1/audits/:id/review-responses
func (h *AuditHandler) AddResponseInReview(c *gin.Context) {
	var req service.RecordResponseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.AddResponseInReview(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, result)
}

// ListResponses 评级列表
// GET /api/v1/audits/:id/responses
func (h *AuditHandler) ListResponses(c *gin.Context) {
	items, err := h.svc.ListResponses(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// ListUnrated 未评级指标
// GET /api/v1/audits/:id/unrated
func (h *AuditHandler) ListUnrated(c *gin.Context) {
	items, err := h.svc.ListUnrated(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// ListIndicators 审核模板指标
// GET /api/v1/audits/:id/indicators
func (h *AuditHandler) ListIndicators(c *gin.Context) {
	items, err := h.svc.ListIndicators(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// MarkComplete 完成评估，进入复核
// POST /api/v1/audits/:id/complete
func (h *AuditHandler) MarkComplete(c *gin.Context) {
	audit, err := h.svc.MarkAssessmentComplete(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, audit)
}

// Close 关闭审核，存在未关闭的严重不符合项时拒绝
// POST /api/v1/audits/:id/close
func (h *AuditHandler) Close(c *gin.Context) {
	var req service.CloseAuditReq
	// body 可选
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	audit, err := h.svc.Close(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, audit)
}

// Score 审核得分
// GET /api/v1/audits/:id/score
func (h *AuditHandler) Score(c *gin.Context) {
	score, err := h.svc.Score(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, score)
}
