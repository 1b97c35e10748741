package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/service"
	"github.com/sourav-maji/RosterPro/pkg/response"
)

// RequirementHandler 人员需求版本 HTTP 处理器
type RequirementHandler struct {
	requirementSvc service.RequirementService
}

// NewRequirementHandler 创建 RequirementHandler
func NewRequirementHandler(requirementSvc service.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementSvc: requirementSvc}
}

// Create 创建需求版本
// POST /api/v1/requirements
func (h *RequirementHandler) Create(c *gin.Context) {
	var req dto.CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeRequirement, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.requirementSvc.Create(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		handleError(c, codeRequirement, err)
		return
	}
	response.Created(c, result)
}

// BulkCreate 同一班次、同一区间批量创建多个角色
// POST /api/v1/requirements/bulk
func (h *RequirementHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkCreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeRequirement, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.requirementSvc.BulkCreate(c.Request.Context(), tenantID, userID, &req)
	if err != nil {
		handleError(c, codeRequirement, err)
		return
	}
	response.Created(c, gin.H{"list": list})
}

// List 按部门列出需求版本
// GET /api/v1/requirements?department_id=xxx&shift_id=xxx&date=YYYY-MM-DD&active_only=true
func (h *RequirementHandler) List(c *gin.Context) {
	var req dto.RequirementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeRequirement, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	list, err := h.requirementSvc.ListByDepartment(c.Request.Context(), tenantID, &req)
	if err != nil {
		handleError(c, codeRequirement, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// Active 某日生效的需求版本
// GET /api/v1/requirements/active?department_id=xxx&date=YYYY-MM-DD
func (h *RequirementHandler) Active(c *gin.Context) {
	var req dto.ActiveRequirementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, codeRequirement, err)
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		badRequest(c, codeRequirement, err)
		return
	}

	list, err := h.requirementSvc.QueryActive(c.Request.Context(), tenantID, req.DepartmentID, req.ShiftID, date)
	if err != nil {
		handleError(c, codeRequirement, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// Get 需求版本详情
// GET /api/v1/requirements/:id
func (h *RequirementHandler) Get(c *gin.Context) {
	id, ok := pathID(c, codeRequirement)
	if !ok {
		return
	}
	tenantID, ok := MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.requirementSvc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		handleError(c, codeRequirement, err)
		return
	}
	response.OK(c, result)
}

// Update 部分更新（需携带 version）
// PUT /api/v1/requirements/:id
func (h *RequirementHandler) Update(c *gin.Context) {
	id, ok := pathID(c, codeRequirement)
	if !ok {
		return
	}
	var req dto.UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeRequirement, err)
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.requirementSvc.Update(c.Request.Context(), tenantID, userID, id, &req)
	if err != nil {
		handleError(c, codeRequirement, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除需求版本
// DELETE /api/v1/requirements/:id
func (h *RequirementHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, codeRequirement)
	if !ok {
		return
	}
	tenantID, userID, ok := mustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.requirementSvc.Delete(c.Request.Context(), tenantID, userID, id); err != nil {
		handleError(c, codeRequirement, err)
		return
	}
	response.NoContent(c)
}
