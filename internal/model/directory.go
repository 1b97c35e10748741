package model

// 目录数据（部门 / 角色 / 班次 / 员工）由上游目录服务维护，本服务只读。

// Department 部门表，对应 departments
type Department struct {
	DepartmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"department_id"`
	TenantID     string `gorm:"type:varchar(64);not null;index"                json:"tenant_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Department) TableName() string { return "departments" }

// Role 角色表，对应 roles
// TenantID 为空表示平台级角色，对所有租户可见
type Role struct {
	RoleID           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	TenantID         *string `gorm:"type:varchar(64);index"                         json:"tenant_id,omitempty"`
	Code             string  `gorm:"type:varchar(50);not null"                      json:"code"`
	Name             string  `gorm:"type:varchar(100);not null"                     json:"name"`
	MaxShiftsPerWeek *int    `json:"max_shifts_per_week,omitempty"`
	MaxWeeklyHours   *int    `json:"max_weekly_hours,omitempty"`
	MinRestHours     *int    `json:"min_rest_hours,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Role) TableName() string { return "roles" }

// IsPlatform 是否平台级角色
func (r *Role) IsPlatform() bool { return r.TenantID == nil }

// 班次类型
const (
	ShiftTypeNormal   = "NORMAL"
	ShiftTypeNight    = "NIGHT"
	ShiftTypeOvertime = "OVERTIME"
)

// Shift 班次定义，对应 shifts
type Shift struct {
	ShiftID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	TenantID      string  `gorm:"type:varchar(64);not null;index"                json:"tenant_id"`
	DepartmentID  string  `gorm:"type:uuid;not null"                             json:"department_id"`
	Name          string  `gorm:"type:varchar(100);not null"                     json:"name"`
	StartTime     string  `gorm:"type:varchar(5);not null"                       json:"start_time"` // "08:00"
	EndTime       string  `gorm:"type:varchar(5);not null"                       json:"end_time"`
	DurationHours float64 `gorm:"type:numeric(5,2);not null;default:8"           json:"duration_hours"`
	Type          string  `gorm:"type:varchar(20);not null;default:'NORMAL'"     json:"type"`
	IsActive      bool    `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// Staff 员工，对应 staff
type Staff struct {
	StaffID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"staff_id"`
	TenantID     string `gorm:"type:varchar(64);not null;index"                json:"tenant_id"`
	DepartmentID string `gorm:"type:uuid;not null"                             json:"department_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	RoleCode     string `gorm:"type:varchar(50)"                               json:"role_code,omitempty"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Staff) TableName() string { return "staff" }
