package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/service"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

// SchedulerHandler 求解编排 HTTP 处理器
type SchedulerHandler struct {
	schedulerSvc service.SchedulerService
}

// NewSchedulerHandler 创建 SchedulerHandler
func NewSchedulerHandler(schedulerSvc service.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{schedulerSvc: schedulerSvc}
}

// Preview 生成排班预览（同步调用求解器，不写排班记录）
// POST /api/v1/scheduler/preview
func (h *SchedulerHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeScheduler, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.schedulerSvc.Preview(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		handleError(c, codeScheduler, err)
		return
	}
	response.OK(c, result)
}

// Save 将预览结果落库
// POST /api/v1/scheduler/save
func (h *SchedulerHandler) Save(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeScheduler, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.schedulerSvc.Save(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		handleError(c, codeScheduler, err)
		return
	}
	response.OK(c, result)
}

// ListRuns 最近的求解运行记录
// GET /api/v1/scheduler/runs?department_id=xxx
func (h *SchedulerHandler) ListRuns(c *gin.Context) {
	var req dto.ScheduleRunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeScheduler, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	list, err := h.schedulerSvc.ListRuns(c.Request.Context(), tenantID, &req)
	if err != nil {
		handleError(c, codeScheduler, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetRun 运行记录详情（含输入、输出与映射）
// GET /api/v1/scheduler/runs/:id
func (h *SchedulerHandler) GetRun(c *gin.Context) {
	id, ok := pathID(c, codeScheduler)
	if !ok {
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.schedulerSvc.GetRun(c.Request.Context(), tenantID, id)
	if err != nil {
		handleError(c, codeScheduler, err)
		return
	}
	response.OK(c, result)
}

// CommitRun 将已记录的运行结果落库
// POST /api/v1/scheduler/runs/:id/commit
func (h *SchedulerHandler) CommitRun(c *gin.Context) {
	id, ok := pathID(c, codeScheduler)
	if !ok {
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.schedulerSvc.CommitRun(c.Request.Context(), tenantID, userID, id)
	if err != nil {
		handleError(c, codeScheduler, err)
		return
	}
	response.OK(c, result)
}
