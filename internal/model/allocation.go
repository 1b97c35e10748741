package model

import "time"

// 排班来源
const (
	SourceSolver = "SOLVER"
	SourceManual = "MANUAL"
)

// 排班状态
const (
	AllocationAssigned = "ASSIGNED"
	AllocationSwapped  = "SWAPPED"
	AllocationLeave    = "LEAVE"
	AllocationAbsent   = "ABSENT"
)

// CountedStatuses 计入覆盖率实际人数的状态；请假与缺勤不算到岗
var CountedStatuses = []string{AllocationAssigned, AllocationSwapped}

// Allocation 排班记录，对应 allocations
// 唯一约束：(tenant_id, staff_id, date)
type Allocation struct {
	AllocationID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"allocation_id"`
	TenantID       string    `gorm:"type:varchar(64);not null"                      json:"tenant_id"`
	DepartmentID   string    `gorm:"type:uuid;not null"                             json:"department_id"`
	ShiftID        string    `gorm:"type:uuid;not null"                             json:"shift_id"`
	StaffID        string    `gorm:"type:uuid;not null"                             json:"staff_id"`
	Date           time.Time `gorm:"type:date;not null"                             json:"date"`
	Source         string    `gorm:"type:varchar(10);not null"                      json:"source"`
	Status         string    `gorm:"type:varchar(10);not null;default:'ASSIGNED'"   json:"status"`
	ObjectiveScore *float64  `json:"objective_score,omitempty"`
	Notes          string    `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	ScheduleRunID  *string   `gorm:"type:uuid"                                      json:"schedule_run_id,omitempty"`
	BaseModel

	// 关联
	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID" json:"shift,omitempty"`
	Staff *Staff `gorm:"foreignKey:StaffID;references:StaffID" json:"staff,omitempty"`
}

// TableName 指定表名
func (Allocation) TableName() string { return "allocations" }

// Counted 是否计入实际到岗人数
func (a *Allocation) Counted() bool {
	for _, st := range CountedStatuses {
		if a.Status == st {
			return true
		}
	}
	return false
}

// 变更类型
const (
	ChangeManualAssign = "MANUAL_ASSIGN"
	ChangeSwap         = "SWAP"
	ChangeStatus       = "STATUS"
)

// AllocationChangeLog 排班变更记录，对应 allocation_change_logs（纯审计日志）
type AllocationChangeLog struct {
	ChangeLogID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	TenantID        string    `gorm:"type:varchar(64);not null"                      json:"tenant_id"`
	AllocationID    string    `gorm:"type:uuid;not null"                             json:"allocation_id"`
	ChangeType      string    `gorm:"type:varchar(20);not null"                      json:"change_type"`
	OriginalStaffID *string   `gorm:"type:uuid"                                      json:"original_staff_id,omitempty"`
	NewStaffID      string    `gorm:"type:uuid;not null"                             json:"new_staff_id"`
	OriginalStatus  string    `gorm:"type:varchar(10)"                               json:"original_status,omitempty"`
	NewStatus       string    `gorm:"type:varchar(10);not null"                      json:"new_status"`
	Notes           string    `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	OperatorID      string    `gorm:"type:varchar(64);not null"                      json:"operator_id"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AllocationChangeLog) TableName() string { return "allocation_change_logs" }
