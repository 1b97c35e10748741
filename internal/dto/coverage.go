package dto

// CoverageRequest 覆盖率查询参数
type CoverageRequest struct {
	DepartmentID string `form:"department_id" binding:"required,uuid"`
	Date         string `form:"date"          binding:"required,datetime=2006-01-02"`
}

// CoverageItem 单个 (班次, 角色) 的覆盖情况；Gap = Actual - Required
type CoverageItem struct {
	ShiftID   string `json:"shift_id"`
	ShiftName string `json:"shift_name"`
	RoleCode  string `json:"role_code"`
	Required  int    `json:"required"`
	Actual    int    `json:"actual"`
	Gap       int    `json:"gap"`
}

// CoverageResponse 部门某日覆盖报告
type CoverageResponse struct {
	DepartmentID  string         `json:"department_id"`
	Date          string         `json:"date"`
	Items         []CoverageItem `json:"items"`
	TotalRequired int            `json:"total_required"`
	TotalActual   int            `json:"total_actual"`
	TotalGap      int            `json:"total_gap"`
}
