package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/service"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

// AllocationHandler 排班记录 HTTP 处理器
type AllocationHandler struct {
	allocationSvc service.AllocationService
}

// NewAllocationHandler 创建 AllocationHandler
func NewAllocationHandler(allocationSvc service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocationSvc: allocationSvc}
}

// ManualAssign 手动排班
// POST /api/v1/allocations/manual
func (h *AllocationHandler) ManualAssign(c *gin.Context) {
	var req dto.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeAllocation, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.ManualAssign(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.Created(c, result)
}

// Swap 换人
// POST /api/v1/allocations/:id/swap
func (h *AllocationHandler) Swap(c *gin.Context) {
	id, ok := pathID(c, codeAllocation)
	if !ok {
		return
	}
	var req dto.SwapAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeAllocation, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.Swap(c.Request.Context(), tenantID, userID, id, &req)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.OK(c, result)
}

// UpdateStatus 手动变更状态
// PUT /api/v1/allocations/:id/status
func (h *AllocationHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, codeAllocation)
	if !ok {
		return
	}
	var req dto.UpdateAllocationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeAllocation, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.UpdateStatus(c.Request.Context(), tenantID, userID, id, &req)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.OK(c, result)
}

// Get 排班记录详情
// GET /api/v1/allocations/:id
func (h *AllocationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, codeAllocation)
	if !ok {
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.OK(c, result)
}

// List 排班记录分页列表
// GET /api/v1/allocations?department_id=xxx&from=...&to=...&page=1&page_size=20
func (h *AllocationHandler) List(c *gin.Context) {
	var req dto.AllocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeAllocation, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	list, total, err := h.allocationSvc.List(c.Request.Context(), tenantID, &req)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Board 部门日看板
// GET /api/v1/allocations/board?department_id=xxx&date=YYYY-MM-DD
func (h *AllocationHandler) Board(c *gin.Context) {
	var req dto.BoardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeAllocation, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.allocationSvc.Board(c.Request.Context(), tenantID, &req)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.OK(c, result)
}

// Calendar 员工日历
// GET /api/v1/allocations/calendar?staff_id=xxx&from=...&to=...
func (h *AllocationHandler) Calendar(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeAllocation, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	entries, err := h.allocationSvc.Calendar(c.Request.Context(), tenantID, &req)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.OK(c, gin.H{"list": entries})
}

// ListChangeLogs 单条排班记录的变更日志
// GET /api/v1/allocations/:id/change-logs
func (h *AllocationHandler) ListChangeLogs(c *gin.Context) {
	id, ok := pathID(c, codeAllocation)
	if !ok {
		return
	}
	var req dto.AllocationChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeAllocation, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	list, total, err := h.allocationSvc.ListChangeLogs(c.Request.Context(), tenantID, id, &req)
	if err != nil {
		handleError(c, codeAllocation, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
