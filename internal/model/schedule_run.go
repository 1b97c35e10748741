package model

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduleRun 求解运行记录，对应 schedule_runs（只追加，写入后不再修改）
type ScheduleRun struct {
	RunID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"run_id"`
	TenantID      string         `gorm:"type:varchar(64);not null"                      json:"tenant_id"`
	DepartmentID  string         `gorm:"type:uuid;not null"                             json:"department_id"`
	WeekStart     time.Time      `gorm:"type:date;not null"                             json:"week_start"`
	InputPayload  datatypes.JSON `gorm:"type:jsonb;not null"                            json:"input_payload"`
	OutputPayload datatypes.JSON `gorm:"type:jsonb"                                     json:"output_payload,omitempty"`
	Mapping       datatypes.JSON `gorm:"type:jsonb"                                     json:"mapping,omitempty"`
	PayloadHash   string         `gorm:"type:char(64);not null"                         json:"payload_hash"`
	Status        string         `gorm:"type:varchar(10);not null"                      json:"status"` // SUCCESS | PARTIAL | FAILED
	UnmetCount    int            `gorm:"not null;default:0"                             json:"unmet_count"`
	ErrorMessage  string         `gorm:"type:text"                                      json:"error_message,omitempty"`
	TriggeredBy   string         `gorm:"type:varchar(64);not null"                      json:"triggered_by"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ScheduleRun) TableName() string { return "schedule_runs" }
