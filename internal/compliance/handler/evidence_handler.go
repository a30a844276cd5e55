package handler

import (
	"strings"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/gin-gonic/gin"
)

// EvidenceHandler 证据请求处理器
type EvidenceHandler struct {
	svc *service.EvidenceService
}

func NewEvidenceHandler(svc *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{svc: svc}
}

// Request 发起证据请求
// POST /api/v1/evidence-requests
func (h *EvidenceHandler) Request(c *gin.Context) {
	var req service.RequestEvidenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	er, err := h.svc.Request(c.Request.Context(), actor(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, er)
}

// List 证据请求列表
// GET /api/v1/evidence-requests?audit_id=xxx&finding_id=xxx&status=xxx&page=1&page_size=20
func (h *EvidenceHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "audit_id", "finding_id", "status")

	items, total, err := h.svc.List(c.Request.Context(), actor(c), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, total, page, pageSize)
}

// Get 证据请求详情（含已提交证据）
// GET /api/v1/evidence-requests/:id
func (h *EvidenceHandler) Get(c *gin.Context) {
	er, err := h.svc.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, er)
}

// Submit 提交证据。multipart/form-data 携带 file 字段上传文件，
// application/json 提交外链。
// POST /api/v1/evidence-requests/:id/submissions
func (h *EvidenceHandler) Submit(c *gin.Context) {
	var req service.SubmitEvidenceReq
	var upload *service.Upload

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
		fh, err := c.FormFile("file")
		if err == nil {
			file, err := fh.Open()
			if err != nil {
				BadRequest(c, "读取上传文件失败")
				return
			}
			defer file.Close()

			upload = &service.Upload{
				FileName:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Reader:      file,
			}
			if strings.TrimSpace(req.DocumentName) == "" {
				req.DocumentName = fh.Filename
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.Submit(c.Request.Context(), actor(c), c.Param("id"), req, upload)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// StartReview 开始审核证据
// POST /api/v1/evidence-requests/:id/start-review
func (h *EvidenceHandler) StartReview(c *gin.Context) {
	er, err := h.svc.StartReview(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, er)
}

// Decide 接受或退回证据
// POST /api/v1/evidence-requests/:id/decision
func (h *EvidenceHandler) Decide(c *gin.Context) {
	var req service.DecideEvidenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	er, err := h.svc.Decide(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, er)
}

// Download 证据下载地址
// GET /api/v1/evidence-items/:id/download
func (h *EvidenceHandler) Download(c *gin.Context) {
	url, err := h.svc.DownloadURL(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"url": url})
}
