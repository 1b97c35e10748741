package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/internal/model"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// RequirementKey 需求版本的唯一性维度（租户由作用域隐含）
type RequirementKey struct {
	DepartmentID string
	ShiftID      string
	RoleCode     string
}

func (k RequirementKey) String() string {
	return k.DepartmentID + "|" + k.ShiftID + "|" + k.RoleCode
}

// RequirementFilter 列表过滤条件
type RequirementFilter struct {
	DepartmentID string
	ShiftID      string     // 可选
	Date         *time.Time // 可选：仅返回区间包含该日期的版本
	ActiveOnly   bool
}

// RequirementRepository 需求版本数据访问接口
type RequirementRepository interface {
	Create(ctx context.Context, req *model.RequirementVersion) error
	GetByID(ctx context.Context, id string) (*model.RequirementVersion, error)
	Update(ctx context.Context, req *model.RequirementVersion) error
	Delete(ctx context.Context, id, deletedBy string) error
	// LockKey 在当前事务内对 key 加事务级咨询锁，串行化同 key 的并发写入
	LockKey(ctx context.Context, key RequirementKey) error
	// FindOverlapping 查找与 [from, to] 相交的有效版本，excludeID 非空时排除自身
	FindOverlapping(ctx context.Context, key RequirementKey, from, to time.Time, excludeID string) ([]model.RequirementVersion, error)
	List(ctx context.Context, filter RequirementFilter) ([]model.RequirementVersion, error)
}

// ── Requirement Repository 实现 ──

type requirementRepo struct {
	scoped
}

// NewRequirementRepo 创建 RequirementRepository 实例
func NewRequirementRepo(db *gorm.DB, tenantID string) RequirementRepository {
	return &requirementRepo{scoped{db: db, tenantID: tenantID, table: "requirement_versions"}}
}

func (r *requirementRepo) Create(ctx context.Context, req *model.RequirementVersion) error {
	req.TenantID = r.tenantID
	return r.db.WithContext(ctx).Omit("Shift").Create(req).Error
}

func (r *requirementRepo) GetByID(ctx context.Context, id string) (*model.RequirementVersion, error) {
	var req model.RequirementVersion
	err := r.q(ctx).
		Preload("Shift").
		Where("requirement_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requirementRepo) Update(ctx context.Context, req *model.RequirementVersion) error {
	oldVersion := req.Version
	result := r.q(ctx).
		Model(&model.RequirementVersion{}).
		Where("requirement_id = ? AND version = ?", req.RequirementID, oldVersion).
		Updates(map[string]interface{}{
			"shift_id":       req.ShiftID,
			"role_code":      req.RoleCode,
			"required_count": req.RequiredCount,
			"effective_from": req.EffectiveFrom,
			"effective_to":   req.EffectiveTo,
			"is_active":      req.IsActive,
			"updated_by":     req.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version = oldVersion + 1
	return nil
}

// Delete 软删除；deleted_at 与 deleted_by 在同一条语句中写入
func (r *requirementRepo) Delete(ctx context.Context, id, deletedBy string) error {
	result := r.q(ctx).
		Model(&model.RequirementVersion{}).
		Where("requirement_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"deleted_by": deletedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *requirementRepo) LockKey(ctx context.Context, key RequirementKey) error {
	lockKey := fmt.Sprintf("requirement:%s|%s", r.tenantID, key.String())
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Error
}

func (r *requirementRepo) FindOverlapping(ctx context.Context, key RequirementKey, from, to time.Time, excludeID string) ([]model.RequirementVersion, error) {
	var list []model.RequirementVersion
	db := r.q(ctx).
		Where("department_id = ? AND shift_id = ? AND role_code = ?", key.DepartmentID, key.ShiftID, key.RoleCode).
		Where("is_active = ?", true).
		// [a1,a2] 与 [b1,b2] 相交：a1 <= b2 AND a2 >= b1
		Where("effective_from <= ? AND effective_to >= ?", to, from)
	if excludeID != "" {
		db = db.Where("requirement_id <> ?", excludeID)
	}
	err := db.Order("effective_from ASC").Find(&list).Error
	return list, err
}

func (r *requirementRepo) List(ctx context.Context, filter RequirementFilter) ([]model.RequirementVersion, error) {
	var list []model.RequirementVersion
	db := r.q(ctx).
		Preload("Shift").
		Where("department_id = ?", filter.DepartmentID)
	if filter.ShiftID != "" {
		db = db.Where("shift_id = ?", filter.ShiftID)
	}
	if filter.Date != nil {
		db = db.Where("effective_from <= ? AND effective_to >= ?", *filter.Date, *filter.Date)
	}
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("shift_id ASC, role_code ASC, effective_from ASC").Find(&list).Error
	return list, err
}
