// Package seed 将 YAML 演示数据转换为可重复导入的目录种子。
//
// 所有主键都由 (租户, 类型, key) 经 UUIDv5 推导，同一份文件重复导入得到相同的 ID。
package seed

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
)

// namespace 种子数据 UUIDv5 命名空间
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://rosterpro.dev/seed"))

// Fixture YAML 根结构
type Fixture struct {
	TenantID    string       `yaml:"tenant_id"`
	Roles       []RoleDef    `yaml:"roles"`
	Departments []Department `yaml:"departments"`
}

// RoleDef 租户角色
type RoleDef struct {
	Code             string `yaml:"code"`
	Name             string `yaml:"name"`
	MaxShiftsPerWeek *int   `yaml:"max_shifts_per_week"`
	MaxWeeklyHours   *int   `yaml:"max_weekly_hours"`
	MinRestHours     *int   `yaml:"min_rest_hours"`
}

// Department 部门及其班次、员工与需求
type Department struct {
	Key          string           `yaml:"key"`
	Name         string           `yaml:"name"`
	Shifts       []ShiftDef       `yaml:"shifts"`
	Staff        []StaffDef       `yaml:"staff"`
	Requirements []RequirementDef `yaml:"requirements"`
}

// ShiftDef 班次
type ShiftDef struct {
	Key   string  `yaml:"key"`
	Name  string  `yaml:"name"`
	Start string  `yaml:"start"`
	End   string  `yaml:"end"`
	Hours float64 `yaml:"hours"`
	Type  string  `yaml:"type"`
}

// StaffDef 员工
type StaffDef struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// RequirementDef 需求版本；shift 引用同部门班次的 key
type RequirementDef struct {
	Shift string `yaml:"shift"`
	Role  string `yaml:"role"`
	Count int    `yaml:"count"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// Load 解析 YAML，未知字段视为错误
func Load(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}
	if strings.TrimSpace(f.TenantID) == "" {
		return nil, fmt.Errorf("种子文件缺少 tenant_id")
	}
	return &f, nil
}

// ID 推导稳定主键
func ID(tenantID, kind string, parts ...string) string {
	name := tenantID + "/" + kind + "/" + strings.Join(parts, "/")
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Build 生成 repository.SeedData
func (f *Fixture) Build() (*repository.SeedData, error) {
	data := &repository.SeedData{}
	tenant := f.TenantID

	for _, r := range f.Roles {
		code := strings.ToUpper(strings.TrimSpace(r.Code))
		if code == "" {
			return nil, fmt.Errorf("角色 code 不能为空")
		}
		tenantID := tenant
		data.Roles = append(data.Roles, model.Role{
			RoleID:           ID(tenant, "role", code),
			TenantID:         &tenantID,
			Code:             code,
			Name:             r.Name,
			MaxShiftsPerWeek: r.MaxShiftsPerWeek,
			MaxWeeklyHours:   r.MaxWeeklyHours,
			MinRestHours:     r.MinRestHours,
		})
	}

	for _, d := range f.Departments {
		if d.Key == "" {
			return nil, fmt.Errorf("部门 %q 缺少 key", d.Name)
		}
		deptID := ID(tenant, "department", d.Key)
		data.Departments = append(data.Departments, model.Department{
			DepartmentID: deptID,
			TenantID:     tenant,
			Name:         d.Name,
			IsActive:     true,
		})

		shiftIDs := make(map[string]string, len(d.Shifts))
		for _, s := range d.Shifts {
			if s.Key == "" {
				return nil, fmt.Errorf("部门 %s 的班次 %q 缺少 key", d.Key, s.Name)
			}
			shiftType := s.Type
			if shiftType == "" {
				shiftType = model.ShiftTypeNormal
			}
			hours := s.Hours
			if hours == 0 {
				hours = 8
			}
			id := ID(tenant, "shift", d.Key, s.Key)
			shiftIDs[s.Key] = id
			data.Shifts = append(data.Shifts, model.Shift{
				ShiftID:       id,
				TenantID:      tenant,
				DepartmentID:  deptID,
				Name:          s.Name,
				StartTime:     s.Start,
				EndTime:       s.End,
				DurationHours: hours,
				Type:          shiftType,
				IsActive:      true,
			})
		}

		for _, st := range d.Staff {
			if st.Key == "" {
				return nil, fmt.Errorf("部门 %s 的员工 %q 缺少 key", d.Key, st.Name)
			}
			data.Staff = append(data.Staff, model.Staff{
				StaffID:      ID(tenant, "staff", d.Key, st.Key),
				TenantID:     tenant,
				DepartmentID: deptID,
				Name:         st.Name,
				Email:        st.Email,
				RoleCode:     strings.ToUpper(st.Role),
				IsActive:     true,
			})
		}

		for i, rq := range d.Requirements {
			shiftID, ok := shiftIDs[rq.Shift]
			if !ok {
				return nil, fmt.Errorf("部门 %s 第 %d 条需求引用了未知班次 %q", d.Key, i+1, rq.Shift)
			}
			from, err := model.ParseDate(rq.From)
			if err != nil {
				return nil, fmt.Errorf("部门 %s 第 %d 条需求 from 无效: %w", d.Key, i+1, err)
			}
			to, err := model.ParseDate(rq.To)
			if err != nil {
				return nil, fmt.Errorf("部门 %s 第 %d 条需求 to 无效: %w", d.Key, i+1, err)
			}
			if to.Before(from) || rq.Count < 1 {
				return nil, fmt.Errorf("部门 %s 第 %d 条需求区间或人数无效", d.Key, i+1)
			}
			role := strings.ToUpper(rq.Role)
			req := model.RequirementVersion{
				RequirementID: ID(tenant, "requirement", d.Key, rq.Shift, role, rq.From),
				TenantID:      tenant,
				DepartmentID:  deptID,
				ShiftID:       shiftID,
				RoleCode:      role,
				RequiredCount: rq.Count,
				EffectiveFrom: from,
				EffectiveTo:   to,
				IsActive:      true,
			}
			req.Version = 1
			data.Requirements = append(data.Requirements, req)
		}
	}

	return data, nil
}
