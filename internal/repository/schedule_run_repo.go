package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/internal/model"
)

// ScheduleRunRepository 求解运行记录数据访问接口（只追加）
type ScheduleRunRepository interface {
	Create(ctx context.Context, run *model.ScheduleRun) error
	GetByID(ctx context.Context, id string) (*model.ScheduleRun, error)
	// ListRecent 最近 limit 条，departmentID 为空时不过滤部门；不含报文字段
	ListRecent(ctx context.Context, departmentID string, limit int) ([]model.ScheduleRun, error)
}

type scheduleRunRepo struct {
	scoped
}

// NewScheduleRunRepo 创建 ScheduleRunRepository 实例
func NewScheduleRunRepo(db *gorm.DB, tenantID string) ScheduleRunRepository {
	return &scheduleRunRepo{scoped{db: db, tenantID: tenantID, table: "schedule_runs"}}
}

func (r *scheduleRunRepo) Create(ctx context.Context, run *model.ScheduleRun) error {
	run.TenantID = r.tenantID
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *scheduleRunRepo) GetByID(ctx context.Context, id string) (*model.ScheduleRun, error) {
	var run model.ScheduleRun
	err := r.q(ctx).
		Where("run_id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *scheduleRunRepo) ListRecent(ctx context.Context, departmentID string, limit int) ([]model.ScheduleRun, error) {
	var runs []model.ScheduleRun
	db := r.q(ctx).
		Select("run_id, tenant_id, department_id, week_start, payload_hash, status, unmet_count, error_message, triggered_by, created_at")
	if departmentID != "" {
		db = db.Where("department_id = ?", departmentID)
	}
	err := db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
