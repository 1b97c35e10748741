package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sourav-maji/RosterPro/internal/model"
)

// SeedData 目录与需求种子数据；主键由调用方给定，重复导入时已存在的行保持不变
type SeedData struct {
	Roles        []model.Role
	Departments  []model.Department
	Shifts       []model.Shift
	Staff        []model.Staff
	Requirements []model.RequirementVersion
}

// SeedResult 各表实际插入的行数
type SeedResult struct {
	Roles        int64
	Departments  int64
	Shifts       int64
	Staff        int64
	Requirements int64
}

// ApplySeed 在单个事务内按依赖顺序插入种子数据（ON CONFLICT DO NOTHING）
func ApplySeed(ctx context.Context, db *gorm.DB, data *SeedData) (*SeedResult, error) {
	res := &SeedResult{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			name  string
			rows  interface{}
			empty bool
			count *int64
		}{
			{"roles", &data.Roles, len(data.Roles) == 0, &res.Roles},
			{"departments", &data.Departments, len(data.Departments) == 0, &res.Departments},
			{"shifts", &data.Shifts, len(data.Shifts) == 0, &res.Shifts},
			{"staff", &data.Staff, len(data.Staff) == 0, &res.Staff},
			{"requirement_versions", &data.Requirements, len(data.Requirements) == 0, &res.Requirements},
		}
		for _, step := range steps {
			if step.empty {
				continue
			}
			q := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(step.rows)
			if q.Error != nil {
				return fmt.Errorf("写入 %s 失败: %w", step.name, q.Error)
			}
			*step.count = q.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
