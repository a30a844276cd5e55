package handler

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/events"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/storage"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Handlers 合规处理器集合
type Handlers struct {
	Audit          *AuditHandler
	Finding        *FindingHandler
	Evidence       *EvidenceHandler
	DocumentReview *DocumentReviewHandler
	Compliance     *ComplianceHandler
	Reference      *ReferenceHandler
	Activity       *ActivityHandler
	SSE            *SSEHandler
}

// NewHandlers 创建合规处理器集合
func NewHandlers(svc *service.Services, hub *events.Hub) *Handlers {
	registerValidators()
	return &Handlers{
		Audit:          NewAuditHandler(svc.Audit),
		Finding:        NewFindingHandler(svc.Finding),
		Evidence:       NewEvidenceHandler(svc.Evidence),
		DocumentReview: NewDocumentReviewHandler(svc.DocumentReview),
		Compliance:     NewComplianceHandler(svc.Compliance),
		Reference:      NewReferenceHandler(svc.Reference),
		Activity:       NewActivityHandler(svc.Activity),
		SSE:            NewSSEHandler(hub),
	}
}

// RegisterRoutes 注册合规路由，group 需已挂载认证中间件
func (h *Handlers) RegisterRoutes(r *gin.RouterGroup) {
	audits := r.Group("/audits")
	{
		audits.POST("", h.Audit.Create)
		audits.GET("", h.Audit.List)
		audits.GET("/:id", h.Audit.Get)
		audits.PUT("/:id/scope", h.Audit.UpdateScope)
		audits.POST("/:id/start", h.Audit.Start)
		audits.GET("/:id/indicators", h.Audit.ListIndicators)
		audits.GET("/:id/responses", h.Audit.ListResponses)
		audits.PUT("/:id/responses", h.Audit.RecordResponse)
		audits.POST("/:id/review-responses", h.Audit.AddResponseInReview)
		audits.GET("/:id/unrated", h.Audit.ListUnrated)
		audits.POST("/:id/complete", h.Audit.MarkComplete)
		audits.POST("/:id/close", h.Audit.Close)
		audits.GET("/:id/score", h.Audit.Score)
	}

	findings := r.Group("/findings")
	{
		findings.POST("", h.Finding.Raise)
		findings.GET("", h.Finding.List)
		findings.GET("/:id", h.Finding.Get)
		findings.POST("/:id/under-review", h.Finding.MarkUnderReview)
	}

	evidence := r.Group("/evidence-requests")
	{
		evidence.POST("", h.Evidence.Request)
		evidence.GET("", h.Evidence.List)
		evidence.GET("/:id", h.Evidence.Get)
		evidence.POST("/:id/submissions", h.Evidence.Submit)
		evidence.POST("/:id/start-review", h.Evidence.StartReview)
		evidence.POST("/:id/decision", h.Evidence.Decide)
	}

	items := r.Group("/evidence-items")
	{
		items.GET("/:id/download", h.Evidence.Download)
		items.GET("/:id/review", h.DocumentReview.Get)
		items.POST("/:id/review", h.DocumentReview.Review)
	}

	checklists := r.Group("/document-checklists")
	{
		checklists.GET("", h.DocumentReview.DocumentTypes)
		checklists.GET("/:type", h.DocumentReview.Checklist)
	}

	compliance := r.Group("/compliance")
	{
		compliance.GET("/templates", h.Compliance.ListTemplates)
		compliance.GET("/templates/:id", h.Compliance.GetTemplate)
		compliance.POST("/runs", h.Compliance.CreateRun)
		compliance.GET("/runs", h.Compliance.ListRuns)
		compliance.GET("/runs/:id", h.Compliance.GetRun)
		compliance.PUT("/runs/:id/responses", h.Compliance.Respond)
		compliance.POST("/runs/:id/submit", h.Compliance.Submit)
		compliance.POST("/runs/:id/lock", h.Compliance.Lock)
		compliance.GET("/actions", h.Compliance.ListActions)
		compliance.PUT("/actions/:id/status", h.Compliance.UpdateAction)
	}

	reference := r.Group("/reference")
	{
		reference.POST("/import/:kind", h.Reference.Import)
		reference.GET("/templates/:kind", h.Reference.DownloadTemplate)
	}

	r.GET("/activity/:entity_type/:entity_id", h.Activity.List)
	r.GET("/events/stream", h.SSE.Stream)
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// List 分页列表响应
func List(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// handleError 按错误类别映射响应码
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.KindValidation:
			BadRequest(c, appErr.Error())
		case apperr.KindConflict:
			Conflict(c, appErr.Error())
		case apperr.KindForbidden:
			Forbidden(c, appErr.Error())
		case apperr.KindNotFound:
			NotFound(c, appErr.Error())
		default:
			InternalError(c, appErr.Error())
		}
		return
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, storage.ErrNotConfigured):
		Error(c, 50300, "对象存储未配置")
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetRoles 令牌中的角色
func GetRoles(c *gin.Context) []string {
	roles, _ := c.Get("roles")
	if r, ok := roles.([]string); ok {
		return r
	}
	return nil
}

// actor 当前请求的操作人
func actor(c *gin.Context) service.Actor {
	return service.Actor{UserID: GetUserID(c), Roles: GetRoles(c)}
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// queryFilters 收集非空的查询参数
func queryFilters(c *gin.Context, keys ...string) map[string]interface{} {
	filters := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			filters[k] = v
		}
	}
	return filters
}

var validatorsOnce sync.Once

// registerValidators 注册自定义校验规则：mintrim=N 去除首尾空白后至少 N 个字符
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("mintrim", minTrim)
	})
}

func minTrim(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
}
