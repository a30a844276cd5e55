package handler

import (
	"fmt"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/importer"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ReferenceHandler 参考数据导入处理器
type ReferenceHandler struct {
	svc *service.ReferenceService
}

func NewReferenceHandler(svc *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{svc: svc}
}

// Import 从 Excel 导入审核指标、文档检查项或周期检查项
// POST /api/v1/reference/import/:kind  (multipart: file, template_id, template_name, scope_type, frequency)
func (h *ReferenceHandler) Import(c *gin.Context) {
	var req service.ImportReq
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	req.Kind = importer.Kind(c.Param("kind"))

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传Excel文件")
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		BadRequest(c, "无法解析Excel文件: "+err.Error())
		return
	}
	defer f.Close()

	result, err := h.svc.Import(c.Request.Context(), actor(c), req, f)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}

// DownloadTemplate 下载导入模板
// GET /api/v1/reference/templates/:kind
func (h *ReferenceHandler) DownloadTemplate(c *gin.Context) {
	kind, err := importer.ParseKind(c.Param("kind"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	f, err := importer.Template(kind)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s_import_template.xlsx\"", kind))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write template: "+err.Error())
	}
}
