package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/internal/model"
)

// DirectoryRepository 目录数据只读访问接口（部门 / 班次 / 员工 / 角色）
type DirectoryRepository interface {
	GetDepartment(ctx context.Context, id string) (*model.Department, error)
	GetShift(ctx context.Context, id string) (*model.Shift, error)
	GetStaff(ctx context.Context, id string) (*model.Staff, error)
	// GetRole 租户角色优先，其次平台角色
	GetRole(ctx context.Context, code string) (*model.Role, error)
	ListShifts(ctx context.Context, departmentID string, activeOnly bool) ([]model.Shift, error)
	ListStaff(ctx context.Context, departmentID string, activeOnly bool) ([]model.Staff, error)
	ListShiftsByIDs(ctx context.Context, ids []string) ([]model.Shift, error)
	ListStaffByIDs(ctx context.Context, ids []string) ([]model.Staff, error)
	// ListRoles 当前租户可见的全部角色（含平台角色）
	ListRoles(ctx context.Context) ([]model.Role, error)
}

type directoryRepo struct {
	db       *gorm.DB
	tenantID string
}

// NewDirectoryRepo 创建 DirectoryRepository 实例
func NewDirectoryRepo(db *gorm.DB, tenantID string) DirectoryRepository {
	return &directoryRepo{db: db, tenantID: tenantID}
}

func (r *directoryRepo) in(ctx context.Context, table string) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(tenantScope(table, r.tenantID))
}

// visibleRoles 租户自有角色与平台角色
func (r *directoryRepo) visibleRoles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("roles.tenant_id = ? OR roles.tenant_id IS NULL", r.tenantID)
}

func (r *directoryRepo) GetDepartment(ctx context.Context, id string) (*model.Department, error) {
	var dept model.Department
	if err := r.in(ctx, "departments").Where("department_id = ?", id).First(&dept).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *directoryRepo) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	if err := r.in(ctx, "shifts").Where("shift_id = ?", id).First(&shift).Error; err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *directoryRepo) GetStaff(ctx context.Context, id string) (*model.Staff, error) {
	var staff model.Staff
	if err := r.in(ctx, "staff").Where("staff_id = ?", id).First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *directoryRepo) GetRole(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	err := r.visibleRoles(ctx).
		Where("code = ?", code).
		Order("tenant_id NULLS LAST").
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *directoryRepo) ListShifts(ctx context.Context, departmentID string, activeOnly bool) ([]model.Shift, error) {
	var shifts []model.Shift
	db := r.in(ctx, "shifts").Where("department_id = ?", departmentID)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("start_time ASC, name ASC").Find(&shifts).Error
	return shifts, err
}

func (r *directoryRepo) ListStaff(ctx context.Context, departmentID string, activeOnly bool) ([]model.Staff, error) {
	var staff []model.Staff
	db := r.in(ctx, "staff").Where("department_id = ?", departmentID)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("staff_id ASC").Find(&staff).Error
	return staff, err
}

func (r *directoryRepo) ListShiftsByIDs(ctx context.Context, ids []string) ([]model.Shift, error) {
	var shifts []model.Shift
	if len(ids) == 0 {
		return shifts, nil
	}
	err := r.in(ctx, "shifts").Where("shift_id IN ?", ids).Find(&shifts).Error
	return shifts, err
}

func (r *directoryRepo) ListStaffByIDs(ctx context.Context, ids []string) ([]model.Staff, error) {
	var staff []model.Staff
	if len(ids) == 0 {
		return staff, nil
	}
	err := r.in(ctx, "staff").Where("staff_id IN ?", ids).Find(&staff).Error
	return staff, err
}

func (r *directoryRepo) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.visibleRoles(ctx).Order("code ASC, tenant_id NULLS LAST").Find(&roles).Error
	return roles, err
}
