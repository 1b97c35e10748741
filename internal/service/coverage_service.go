package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// CoverageService 需求与实际到岗对比（只读，每次实时计算，不缓存）
type CoverageService interface {
	Compute(ctx context.Context, tenantID, departmentID string, date time.Time) (*dto.CoverageResponse, error)
}

type coverageService struct {
	provider repository.Provider
	logger   *zap.Logger
}

// NewCoverageService 创建 CoverageService 实例
func NewCoverageService(provider repository.Provider, logger *zap.Logger) CoverageService {
	return &coverageService{provider: provider, logger: logger}
}

type shiftRole struct {
	shiftID  string
	roleCode string
}

// Compute 按 (班次, 角色) 汇总 required / actual / gap
//
// actual 只统计 ASSIGNED 与 SWAPPED；没有需求但有人到岗的组合以 required=0 列出。
func (s *coverageService) Compute(ctx context.Context, tenantID, departmentID string, date time.Time) (*dto.CoverageResponse, error) {
	date = model.TruncateDate(date)
	repo := s.provider.ForTenant(tenantID)

	if _, err := repo.Directory.GetDepartment(ctx, departmentID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 部门 %s", pkgerrors.ErrNotFound, departmentID)
		}
		s.logger.Error("查询部门失败", zap.Error(err))
		return nil, err
	}

	reqs, err := repo.Requirement.List(ctx, repository.RequirementFilter{
		DepartmentID: departmentID,
		Date:         &date,
		ActiveOnly:   true,
	})
	if err != nil {
		s.logger.Error("查询生效需求失败", zap.Error(err))
		return nil, err
	}
	counts, err := repo.Allocation.CountCovered(ctx, departmentID, date)
	if err != nil {
		s.logger.Error("统计到岗人数失败", zap.Error(err))
		return nil, err
	}
	shifts, err := repo.Directory.ListShifts(ctx, departmentID, false)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	shiftNames := make(map[string]string, len(shifts))
	for _, sh := range shifts {
		shiftNames[sh.ShiftID] = sh.Name
	}

	// ── 合并需求与实际 ──
	groups := make(map[shiftRole]*dto.CoverageItem)
	item := func(shiftID, roleCode string) *dto.CoverageItem {
		k := shiftRole{shiftID: shiftID, roleCode: roleCode}
		if it, ok := groups[k]; ok {
			return it
		}
		it := &dto.CoverageItem{ShiftID: shiftID, ShiftName: shiftNames[shiftID], RoleCode: roleCode}
		groups[k] = it
		return it
	}
	for _, r := range reqs {
		item(r.ShiftID, r.RoleCode).Required += r.RequiredCount
	}
	for _, c := range counts {
		item(c.ShiftID, c.RoleCode).Actual += c.Actual
	}

	resp := &dto.CoverageResponse{
		DepartmentID: departmentID,
		Date:         model.FormatDate(date),
		Items:        make([]dto.CoverageItem, 0, len(groups)),
	}
	for _, it := range groups {
		it.Gap = it.Actual - it.Required
		resp.Items = append(resp.Items, *it)
		resp.TotalRequired += it.Required
		resp.TotalActual += it.Actual
	}
	resp.TotalGap = resp.TotalActual - resp.TotalRequired

	sort.Slice(resp.Items, func(i, j int) bool {
		a, b := resp.Items[i], resp.Items[j]
		if a.ShiftName != b.ShiftName {
			return a.ShiftName < b.ShiftName
		}
		if a.ShiftID != b.ShiftID {
			return a.ShiftID < b.ShiftID
		}
		return a.RoleCode < b.RoleCode
	})
	return resp, nil
}
