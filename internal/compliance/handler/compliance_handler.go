package handler

import (
	"strconv"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/gin-gonic/gin"
)

// codeRunExists 周期内已有检查，data 中返回已存在的检查
const codeRunExists = 40901

// ComplianceHandler 周期检查处理器
type ComplianceHandler struct {
	svc *service.ComplianceService
}

func NewComplianceHandler(svc *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{svc: svc}
}

// ListTemplates 检查模板列表
// GET /api/v1/compliance/templates
func (h *ComplianceHandler) ListTemplates(c *gin.Context) {
	items, err := h.svc.Templates(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// GetTemplate 检查模板详情（含检查项）
// GET /api/v1/compliance/templates/:id
func (h *ComplianceHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.svc.Template(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, tpl)
}

// CreateRun 创建周期检查；同一周期已存在时返回 409 和已有检查
// POST /api/v1/compliance/runs
func (h *ComplianceHandler) CreateRun(c *gin.Context) {
	var req service.CreateRunReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	run, created, err := h.svc.CreateRun(c.Request.Context(), actor(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	if !created {
		c.JSON(409, Response{
			Code:    codeRunExists,
			Message: "该周期的检查已存在",
			Data:    gin.H{"existing_run_id": run.ID, "run": run},
		})
		return
	}
	Created(c, run)
}

// ListRuns 周期检查列表
// GET /api/v1/compliance/runs?scope_type=xxx&scope_entity_id=xxx&status=xxx&status_color=xxx&page=1&page_size=20
func (h *ComplianceHandler) ListRuns(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "scope_type", "scope_entity_id", "status", "status_color")

	items, total, err := h.svc.List(c.Request.Context(), actor(c), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page, pageSize)
}

// GetRun 周期检查详情
// GET /api/v1/compliance/runs/:id
func (h *ComplianceHandler) GetRun(c *gin.Context) {
	run, err := h.svc.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, run)
}

// Respond 批量作答
// PUT /api/v1/compliance/runs/:id/responses
func (h *ComplianceHandler) Respond(c *gin.Context) {
	var req service.RespondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	items, err := h.svc.Respond(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// Submit 提交检查，计算状态色并生成整改行动
// POST /api/v1/compliance/runs/:id/submit
func (h *ComplianceHandler) Submit(c *gin.Context) {
	result, err := h.svc.Submit(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}

// Lock 锁定检查
// POST /api/v1/compliance/runs/:id/lock
func (h *ComplianceHandler) Lock(c *gin.Context) {
	run, err := h.svc.Lock(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, run)
}

// ListActions 整改行动列表
// GET /api/v1/compliance/actions?run_id=xxx&status=xxx&overdue=true&page=1&page_size=20
func (h *ComplianceHandler) ListActions(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "run_id", "status")
	if overdue, err := strconv.ParseBool(c.Query("overdue")); err == nil {
		filters["overdue"] = overdue
	}

	items, total, err := h.svc.ListActions(c.Request.Context(), actor(c), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page, pageSize)
}

// UpdateAction 整改行动状态流转
// PUT /api/v1/compliance/actions/:id/status
func (h *ComplianceHandler) UpdateAction(c *gin.Context) {
	var req service.UpdateActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	action, err := h.svc.UpdateAction(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, action)
}
