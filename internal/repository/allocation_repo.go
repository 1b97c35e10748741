package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/internal/model"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// AllocationFilter 排班记录查询条件，零值字段不参与过滤
type AllocationFilter struct {
	DepartmentID string
	ShiftID      string
	StaffID      string
	Source       string
	Status       string
	From         *time.Time
	To           *time.Time
}

// ShiftRoleCount 某日某班次某角色的实际到岗人数
type ShiftRoleCount struct {
	ShiftID  string
	RoleCode string
	Actual   int
}

// AllocationRepository 排班记录数据访问接口
type AllocationRepository interface {
	Create(ctx context.Context, alloc *model.Allocation) error
	CreateBatch(ctx context.Context, allocs []model.Allocation) error
	GetByID(ctx context.Context, id string) (*model.Allocation, error)
	Update(ctx context.Context, alloc *model.Allocation) error
	// DeleteSolverRows 仅删除部门在给定日期上 source=SOLVER 的记录
	DeleteSolverRows(ctx context.Context, departmentID string, dates []time.Time) (int64, error)
	// ListByStaffDates 返回给定员工在给定日期上的全部记录（跨部门）
	ListByStaffDates(ctx context.Context, staffIDs []string, dates []time.Time) ([]model.Allocation, error)
	ExistsForStaffDate(ctx context.Context, staffID string, date time.Time, excludeID string) (bool, error)
	List(ctx context.Context, filter AllocationFilter, offset, limit int) ([]model.Allocation, int64, error)
	// CountCovered 统计某日各 (班次, 角色) 状态为 ASSIGNED/SWAPPED 的人数
	CountCovered(ctx context.Context, departmentID string, date time.Time) ([]ShiftRoleCount, error)
}

// ── Allocation Repository 实现 ──

type allocationRepo struct {
	scoped
}

// NewAllocationRepo 创建 AllocationRepository 实例
func NewAllocationRepo(db *gorm.DB, tenantID string) AllocationRepository {
	return &allocationRepo{scoped{db: db, tenantID: tenantID, table: "allocations"}}
}

// translate 唯一约束冲突统一转换为 ErrConflict
func translate(err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", pkgerrors.ErrConflict, err)
	}
	return err
}

func (r *allocationRepo) Create(ctx context.Context, alloc *model.Allocation) error {
	alloc.TenantID = r.tenantID
	return translate(r.db.WithContext(ctx).Omit("Shift", "Staff").Create(alloc).Error)
}

func (r *allocationRepo) CreateBatch(ctx context.Context, allocs []model.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	for i := range allocs {
		allocs[i].TenantID = r.tenantID
	}
	return translate(r.db.WithContext(ctx).Omit("Shift", "Staff").CreateInBatches(&allocs, 200).Error)
}

func (r *allocationRepo) GetByID(ctx context.Context, id string) (*model.Allocation, error) {
	var alloc model.Allocation
	err := r.q(ctx).
		Preload("Shift").
		Preload("Staff").
		Where("allocation_id = ?", id).
		First(&alloc).Error
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

func (r *allocationRepo) Update(ctx context.Context, alloc *model.Allocation) error {
	result := r.q(ctx).
		Model(&model.Allocation{}).
		Where("allocation_id = ?", alloc.AllocationID).
		Updates(map[string]interface{}{
			"staff_id":   alloc.StaffID,
			"status":     alloc.Status,
			"source":     alloc.Source,
			"notes":      alloc.Notes,
			"updated_by": alloc.UpdatedBy,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *allocationRepo) DeleteSolverRows(ctx context.Context, departmentID string, dates []time.Time) (int64, error) {
	if len(dates) == 0 {
		return 0, nil
	}
	result := r.q(ctx).
		Where("department_id = ? AND source = ? AND date IN ?", departmentID, model.SourceSolver, dates).
		Delete(&model.Allocation{})
	return result.RowsAffected, result.Error
}

func (r *allocationRepo) ListByStaffDates(ctx context.Context, staffIDs []string, dates []time.Time) ([]model.Allocation, error) {
	var list []model.Allocation
	if len(staffIDs) == 0 || len(dates) == 0 {
		return list, nil
	}
	err := r.q(ctx).
		Where("staff_id IN ? AND date IN ?", staffIDs, dates).
		Find(&list).Error
	return list, err
}

func (r *allocationRepo) ExistsForStaffDate(ctx context.Context, staffID string, date time.Time, excludeID string) (bool, error) {
	var count int64
	db := r.q(ctx).
		Model(&model.Allocation{}).
		Where("staff_id = ? AND date = ?", staffID, date)
	if excludeID != "" {
		db = db.Where("allocation_id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *allocationRepo) List(ctx context.Context, filter AllocationFilter, offset, limit int) ([]model.Allocation, int64, error) {
	var list []model.Allocation
	var total int64

	db := r.q(ctx).Model(&model.Allocation{})
	if filter.DepartmentID != "" {
		db = db.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.ShiftID != "" {
		db = db.Where("shift_id = ?", filter.ShiftID)
	}
	if filter.StaffID != "" {
		db = db.Where("staff_id = ?", filter.StaffID)
	}
	if filter.Source != "" {
		db = db.Where("source = ?", filter.Source)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("date <= ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Preload("Shift").Preload("Staff").Order("date ASC, shift_id ASC, staff_id ASC")
	if limit > 0 {
		db = db.Offset(offset).Limit(limit)
	}
	if err := db.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *allocationRepo) CountCovered(ctx context.Context, departmentID string, date time.Time) ([]ShiftRoleCount, error) {
	var rows []ShiftRoleCount
	err := r.q(ctx).
		Model(&model.Allocation{}).
		Select("allocations.shift_id AS shift_id, staff.role_code AS role_code, COUNT(*) AS actual").
		Joins("JOIN staff ON staff.staff_id = allocations.staff_id AND staff.tenant_id = allocations.tenant_id").
		Where("allocations.department_id = ? AND allocations.date = ?", departmentID, date).
		Where("allocations.status IN ?", model.CountedStatuses).
		Group("allocations.shift_id, staff.role_code").
		Scan(&rows).Error
	return rows, err
}
