package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/internal/model"
)

// ChangeLogRepository 排班变更日志数据访问接口
type ChangeLogRepository interface {
	Create(ctx context.Context, log *model.AllocationChangeLog) error
	ListByAllocation(ctx context.Context, allocationID string, offset, limit int) ([]model.AllocationChangeLog, int64, error)
}

type changeLogRepo struct {
	scoped
}

// NewChangeLogRepo 创建 ChangeLogRepository 实例
func NewChangeLogRepo(db *gorm.DB, tenantID string) ChangeLogRepository {
	return &changeLogRepo{scoped{db: db, tenantID: tenantID, table: "allocation_change_logs"}}
}

func (r *changeLogRepo) Create(ctx context.Context, log *model.AllocationChangeLog) error {
	log.TenantID = r.tenantID
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *changeLogRepo) ListByAllocation(ctx context.Context, allocationID string, offset, limit int) ([]model.AllocationChangeLog, int64, error) {
	var logs []model.AllocationChangeLog
	var total int64

	db := r.q(ctx).Model(&model.AllocationChangeLog{}).Where("allocation_id = ?", allocationID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error
	return logs, total, err
}
