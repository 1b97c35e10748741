package model

import "time"

// RequirementVersion 人员需求版本，对应 requirement_versions
// 同一 (租户, 部门, 班次, 角色) 下的有效版本日期区间（闭区间）互不重叠
type RequirementVersion struct {
	RequirementID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"requirement_id"`
	TenantID      string    `gorm:"type:varchar(64);not null"                      json:"tenant_id"`
	DepartmentID  string    `gorm:"type:uuid;not null"                             json:"department_id"`
	ShiftID       string    `gorm:"type:uuid;not null"                             json:"shift_id"`
	RoleCode      string    `gorm:"type:varchar(50);not null"                      json:"role_code"`
	RequiredCount int       `gorm:"not null"                                       json:"required_count"`
	EffectiveFrom time.Time `gorm:"type:date;not null"                             json:"effective_from"`
	EffectiveTo   time.Time `gorm:"type:date;not null"                             json:"effective_to"`
	IsActive      bool      `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID" json:"shift,omitempty"`
}

// TableName 指定表名
func (RequirementVersion) TableName() string { return "requirement_versions" }

// Covers 闭区间是否包含 date
func (r *RequirementVersion) Covers(date time.Time) bool {
	return !date.Before(r.EffectiveFrom) && !date.After(r.EffectiveTo)
}

// Overlaps 两个闭区间 [a1,a2] 与 [b1,b2] 相交当且仅当 a1 ≤ b2 且 a2 ≥ b1
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return !a1.After(b2) && !a2.Before(b1)
}
