package dto

// RosterExportRequest 部门排班表导出参数
type RosterExportRequest struct {
	DepartmentID string `form:"department_id" binding:"required,uuid"`
	From         string `form:"from"          binding:"required,datetime=2006-01-02"`
	To           string `form:"to"            binding:"required,datetime=2006-01-02"`
}

// CalendarExportRequest 员工日历订阅导出参数
type CalendarExportRequest struct {
	StaffID string `form:"staff_id" binding:"required,uuid"`
	From    string `form:"from"     binding:"required,datetime=2006-01-02"`
	To      string `form:"to"       binding:"required,datetime=2006-01-02"`
}
