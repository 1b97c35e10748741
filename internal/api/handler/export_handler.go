package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/service"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportRoster 导出部门排班表
// GET /api/v1/export/roster?department_id=xxx&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ExportHandler) ExportRoster(c *gin.Context) {
	var req dto.RosterExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeExport, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportRoster(c.Request.Context(), tenantID, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 导出员工个人排班日历
// GET /api/v1/export/calendar?staff_id=xxx&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var req dto.CalendarExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeExport, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	body, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), tenantID, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeICS, body)
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoAllocations):
		response.NotFound(c, codeExport+101, "所选区间内暂无排班记录")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleError(c, codeExport, err)
	}
}
