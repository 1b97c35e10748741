package dto

// ── 需求版本模块 DTO ──

// CreateRequirementRequest 创建需求版本请求
type CreateRequirementRequest struct {
	DepartmentID  string `json:"department_id"  binding:"required,uuid"`
	ShiftID       string `json:"shift_id"       binding:"required,uuid"`
	RoleCode      string `json:"role_code"      binding:"required,max=50"`
	RequiredCount int    `json:"required_count" binding:"required,min=1"`
	EffectiveFrom string `json:"effective_from" binding:"required,datetime=2006-01-02"`
	EffectiveTo   string `json:"effective_to"   binding:"required,datetime=2006-01-02"`
	IsActive      *bool  `json:"is_active"`
}

// RoleCount 批量创建中的单个角色需求
type RoleCount struct {
	RoleCode      string `json:"role_code"      binding:"required,max=50"`
	RequiredCount int    `json:"required_count" binding:"required,min=1"`
}

// BulkCreateRequirementRequest 同一班次、同一区间批量创建多个角色的需求
type BulkCreateRequirementRequest struct {
	DepartmentID  string      `json:"department_id"  binding:"required,uuid"`
	ShiftID       string      `json:"shift_id"       binding:"required,uuid"`
	EffectiveFrom string      `json:"effective_from" binding:"required,datetime=2006-01-02"`
	EffectiveTo   string      `json:"effective_to"   binding:"required,datetime=2006-01-02"`
	Roles         []RoleCount `json:"roles"          binding:"required,min=1,dive"`
}

// UpdateRequirementRequest 更新需求版本请求（部分更新 + 乐观锁）
type UpdateRequirementRequest struct {
	ShiftID       *string `json:"shift_id"       binding:"omitempty,uuid"`
	RoleCode      *string `json:"role_code"      binding:"omitempty,max=50"`
	RequiredCount *int    `json:"required_count" binding:"omitempty,min=1"`
	EffectiveFrom *string `json:"effective_from" binding:"omitempty,datetime=2006-01-02"`
	EffectiveTo   *string `json:"effective_to"   binding:"omitempty,datetime=2006-01-02"`
	IsActive      *bool   `json:"is_active"`
	Version       int     `json:"version"        binding:"required,min=1"`
}

// RequirementListRequest 按部门列出需求版本
type RequirementListRequest struct {
	DepartmentID string `form:"department_id" binding:"required,uuid"`
	ShiftID      string `form:"shift_id"      binding:"omitempty,uuid"`
	Date         string `form:"date"          binding:"omitempty,datetime=2006-01-02"`
	ActiveOnly   bool   `form:"active_only"`
}

// ActiveRequirementRequest 查询某日生效的需求版本
type ActiveRequirementRequest struct {
	DepartmentID string `form:"department_id" binding:"required,uuid"`
	ShiftID      string `form:"shift_id"      binding:"omitempty,uuid"`
	Date         string `form:"date"          binding:"required,datetime=2006-01-02"`
}

// ── 响应 ──

// RequirementResponse 需求版本响应
type RequirementResponse struct {
	ID            string `json:"id"`
	DepartmentID  string `json:"department_id"`
	ShiftID       string `json:"shift_id"`
	ShiftName     string `json:"shift_name,omitempty"`
	RoleCode      string `json:"role_code"`
	RequiredCount int    `json:"required_count"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to"`
	IsActive      bool   `json:"is_active"`
	Version       int    `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
