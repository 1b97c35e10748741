package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/service"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

// CoverageHandler 覆盖率 HTTP 处理器
type CoverageHandler struct {
	coverageSvc service.CoverageService
}

// NewCoverageHandler 创建 CoverageHandler
func NewCoverageHandler(coverageSvc service.CoverageService) *CoverageHandler {
	return &CoverageHandler{coverageSvc: coverageSvc}
}

// Compute 部门某日的需求覆盖情况（实时计算，不缓存）
// GET /api/v1/coverage?department_id=xxx&date=YYYY-MM-DD
func (h *CoverageHandler) Compute(c *gin.Context) {
	var req dto.CoverageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeCoverage, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		badRequest(c, codeCoverage, err)
		return
	}

	result, err := h.coverageSvc.Compute(c.Request.Context(), tenantID, req.DepartmentID, date)
	if err != nil {
		handleError(c, codeCoverage, err)
		return
	}
	response.OK(c, result)
}
