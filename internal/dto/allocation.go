package dto

// ── 排班记录模块 DTO ──

// ManualAssignRequest 手动排班请求
type ManualAssignRequest struct {
	DepartmentID string `json:"department_id" binding:"required,uuid"`
	ShiftID      string `json:"shift_id"      binding:"required,uuid"`
	StaffID      string `json:"staff_id"      binding:"required,uuid"`
	Date         string `json:"date"          binding:"required,datetime=2006-01-02"`
	Notes        string `json:"notes"         binding:"omitempty,max=500"`
}

// SwapAllocationRequest 换人请求
type SwapAllocationRequest struct {
	NewStaffID string `json:"new_staff_id" binding:"required,uuid"`
	Notes      string `json:"notes"        binding:"omitempty,max=500"`
}

// UpdateAllocationStatusRequest 手动变更状态请求；SWAPPED 只能通过换人产生
type UpdateAllocationStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ASSIGNED LEAVE ABSENT"`
	Notes  string `json:"notes"  binding:"omitempty,max=500"`
}

// AllocationListRequest 排班记录列表查询参数
type AllocationListRequest struct {
	DepartmentID string `form:"department_id" binding:"omitempty,uuid"`
	ShiftID      string `form:"shift_id"      binding:"omitempty,uuid"`
	StaffID      string `form:"staff_id"      binding:"omitempty,uuid"`
	Source       string `form:"source"        binding:"omitempty,oneof=SOLVER MANUAL"`
	Status       string `form:"status"        binding:"omitempty,oneof=ASSIGNED SWAPPED LEAVE ABSENT"`
	From         string `form:"from"          binding:"omitempty,datetime=2006-01-02"`
	To           string `form:"to"            binding:"omitempty,datetime=2006-01-02"`
	PaginationRequest
}

// BoardRequest 部门日看板查询参数
type BoardRequest struct {
	DepartmentID string `form:"department_id" binding:"required,uuid"`
	Date         string `form:"date"          binding:"required,datetime=2006-01-02"`
}

// CalendarRequest 员工日历查询参数
type CalendarRequest struct {
	StaffID string `form:"staff_id" binding:"required,uuid"`
	From    string `form:"from"     binding:"required,datetime=2006-01-02"`
	To      string `form:"to"       binding:"required,datetime=2006-01-02"`
}

// AllocationChangeLogListRequest 变更日志分页参数
type AllocationChangeLogListRequest struct {
	PaginationRequest
}

// ── 响应 ──

// AllocationResponse 排班记录响应
type AllocationResponse struct {
	ID             string   `json:"id"`
	DepartmentID   string   `json:"department_id"`
	ShiftID        string   `json:"shift_id"`
	ShiftName      string   `json:"shift_name,omitempty"`
	StaffID        string   `json:"staff_id"`
	StaffName      string   `json:"staff_name,omitempty"`
	Date           string   `json:"date"`
	Source         string   `json:"source"`
	Status         string   `json:"status"`
	ObjectiveScore *float64 `json:"objective_score,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	ScheduleRunID  *string  `json:"schedule_run_id,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// BoardEntry 看板中的单个人员
type BoardEntry struct {
	AllocationID string `json:"allocation_id"`
	StaffID      string `json:"staff_id"`
	StaffName    string `json:"staff_name"`
	Status       string `json:"status"`
	Source       string `json:"source"`
}

// BoardShift 看板中的单个班次
type BoardShift struct {
	ShiftID   string       `json:"shift_id"`
	ShiftName string       `json:"shift_name"`
	Staff     []BoardEntry `json:"staff"`
}

// BoardResponse 部门日看板
type BoardResponse struct {
	DepartmentID string       `json:"department_id"`
	Date         string       `json:"date"`
	Shifts       []BoardShift `json:"shifts"`
}

// CalendarEntry 员工日历条目
type CalendarEntry struct {
	AllocationID string `json:"allocation_id"`
	Date         string `json:"date"`
	ShiftID      string `json:"shift_id"`
	ShiftName    string `json:"shift_name"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	Status       string `json:"status"`
	Source       string `json:"source"`
}

// CommitResponse 求解结果落库结果
type CommitResponse struct {
	DepartmentID string   `json:"department_id"`
	RunID        *string  `json:"run_id,omitempty"`
	Dates        []string `json:"dates"`
	Deleted      int64    `json:"deleted"`
	Inserted     int      `json:"inserted"`
}

// AllocationChangeLogResponse 变更日志响应
type AllocationChangeLogResponse struct {
	ID              string  `json:"id"`
	AllocationID    string  `json:"allocation_id"`
	ChangeType      string  `json:"change_type"`
	OriginalStaffID *string `json:"original_staff_id,omitempty"`
	NewStaffID      string  `json:"new_staff_id"`
	OriginalStatus  string  `json:"original_status,omitempty"`
	NewStatus       string  `json:"new_status"`
	Notes           string  `json:"notes,omitempty"`
	OperatorID      string  `json:"operator_id"`
	CreatedAt       string  `json:"created_at"`
}
