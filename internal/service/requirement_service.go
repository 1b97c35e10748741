package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
)

// RequirementService 人员需求版本业务接口
//
// 不变量：同一 (租户, 部门, 班次, 角色) 的有效版本闭区间两两不相交。
// 写操作在事务内先取该 key 的咨询锁，再做重叠检查与写入。
type RequirementService interface {
	// 创建需求版本
	Create(ctx context.Context, tenantID, callerID string, req *dto.CreateRequirementRequest) (*dto.RequirementResponse, error)
	// 同一班次、同一区间批量创建多个角色（全部成功或全部失败）
	BulkCreate(ctx context.Context, tenantID, callerID string, req *dto.BulkCreateRequirementRequest) ([]dto.RequirementResponse, error)
	// 部分更新（乐观锁）
	Update(ctx context.Context, tenantID, callerID, id string, req *dto.UpdateRequirementRequest) (*dto.RequirementResponse, error)
	Get(ctx context.Context, tenantID, id string) (*dto.RequirementResponse, error)
	Delete(ctx context.Context, tenantID, callerID, id string) error
	// 某日生效的有效版本；shiftID 为空时返回部门全部班次
	QueryActive(ctx context.Context, tenantID, departmentID, shiftID string, date time.Time) ([]dto.RequirementResponse, error)
	ListByDepartment(ctx context.Context, tenantID string, req *dto.RequirementListRequest) ([]dto.RequirementResponse, error)
}

type requirementService struct {
	provider repository.Provider
	logger   *zap.Logger
}

// NewRequirementService 创建 RequirementService 实例
func NewRequirementService(provider repository.Provider, logger *zap.Logger) RequirementService {
	return &requirementService{provider: provider, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create
// ════════════════════════════════════════════════════════════

func (s *requirementService) Create(ctx context.Context, tenantID, callerID string, req *dto.CreateRequirementRequest) (*dto.RequirementResponse, error) {
	from, to, err := parseRange(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}
	if req.RequiredCount < 1 {
		return nil, fmt.Errorf("%w: required_count 必须大于等于 1", pkgerrors.ErrValidation)
	}
	roleCode := normalizeRoleCode(req.RoleCode)
	if roleCode == "" {
		return nil, fmt.Errorf("%w: role_code 不能为空", pkgerrors.ErrValidation)
	}

	repo := s.provider.ForTenant(tenantID)
	shift, err := s.checkOwnership(ctx, repo, req.DepartmentID, req.ShiftID, roleCode)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	version := &model.RequirementVersion{
		DepartmentID:  req.DepartmentID,
		ShiftID:       req.ShiftID,
		RoleCode:      roleCode,
		RequiredCount: req.RequiredCount,
		EffectiveFrom: from,
		EffectiveTo:   to,
		IsActive:      active,
	}
	version.CreatedBy = &callerID
	version.UpdatedBy = &callerID

	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		return s.insertChecked(ctx, tx, version)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("创建需求版本",
		zap.String("tenant_id", tenantID),
		zap.String("requirement_id", version.RequirementID),
		zap.String("role_code", roleCode),
	)
	version.Shift = shift
	return toRequirementResponse(version), nil
}

// ════════════════════════════════════════════════════════════
// BulkCreate
// ════════════════════════════════════════════════════════════

func (s *requirementService) BulkCreate(ctx context.Context, tenantID, callerID string, req *dto.BulkCreateRequirementRequest) ([]dto.RequirementResponse, error) {
	from, to, err := parseRange(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}
	if len(req.Roles) == 0 {
		return nil, fmt.Errorf("%w: roles 不能为空", pkgerrors.ErrValidation)
	}

	repo := s.provider.ForTenant(tenantID)
	seen := make(map[string]bool, len(req.Roles))
	versions := make([]*model.RequirementVersion, 0, len(req.Roles))
	var shift *model.Shift
	for _, rc := range req.Roles {
		code := normalizeRoleCode(rc.RoleCode)
		if code == "" || rc.RequiredCount < 1 {
			return nil, fmt.Errorf("%w: 角色编码不能为空且人数必须大于等于 1", pkgerrors.ErrValidation)
		}
		if seen[code] {
			return nil, fmt.Errorf("%w: 角色 %s 重复", pkgerrors.ErrValidation, code)
		}
		seen[code] = true

		if shift, err = s.checkOwnership(ctx, repo, req.DepartmentID, req.ShiftID, code); err != nil {
			return nil, err
		}
		v := &model.RequirementVersion{
			DepartmentID:  req.DepartmentID,
			ShiftID:       req.ShiftID,
			RoleCode:      code,
			RequiredCount: rc.RequiredCount,
			EffectiveFrom: from,
			EffectiveTo:   to,
			IsActive:      true,
		}
		v.CreatedBy = &callerID
		v.UpdatedBy = &callerID
		versions = append(versions, v)
	}

	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		for _, v := range versions {
			if err := s.insertChecked(ctx, tx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]dto.RequirementResponse, 0, len(versions))
	for _, v := range versions {
		v.Shift = shift
		result = append(result, *toRequirementResponse(v))
	}
	return result, nil
}

// insertChecked 加锁 → 重叠检查 → 插入，必须在事务内调用
func (s *requirementService) insertChecked(ctx context.Context, tx *repository.Repository, v *model.RequirementVersion) error {
	if v.IsActive {
		if err := s.checkOverlap(ctx, tx, v, ""); err != nil {
			return err
		}
	}
	if err := tx.Requirement.Create(ctx, v); err != nil {
		s.logger.Error("创建需求版本失败", zap.Error(err))
		return err
	}
	return nil
}

// checkOverlap 取 key 咨询锁后检查重叠
func (s *requirementService) checkOverlap(ctx context.Context, tx *repository.Repository, v *model.RequirementVersion, excludeID string) error {
	key := repository.RequirementKey{DepartmentID: v.DepartmentID, ShiftID: v.ShiftID, RoleCode: v.RoleCode}
	if err := tx.Requirement.LockKey(ctx, key); err != nil {
		s.logger.Error("获取需求版本锁失败", zap.Error(err))
		return err
	}
	overlapping, err := tx.Requirement.FindOverlapping(ctx, key, v.EffectiveFrom, v.EffectiveTo, excludeID)
	if err != nil {
		s.logger.Error("查询重叠需求版本失败", zap.Error(err))
		return err
	}
	if len(overlapping) > 0 {
		o := overlapping[0]
		return fmt.Errorf("%w: 与版本 %s [%s, %s] 重叠", pkgerrors.ErrOverlap,
			o.RequirementID, model.FormatDate(o.EffectiveFrom), model.FormatDate(o.EffectiveTo))
	}
	return nil
}

// checkOwnership 部门、班次（须属于该部门）与角色必须对当前租户可见
func (s *requirementService) checkOwnership(ctx context.Context, repo *repository.Repository, departmentID, shiftID, roleCode string) (*model.Shift, error) {
	if _, err := repo.Directory.GetDepartment(ctx, departmentID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 部门 %s", pkgerrors.ErrOwnership, departmentID)
		}
		s.logger.Error("查询部门失败", zap.Error(err))
		return nil, err
	}
	shift, err := repo.Directory.GetShift(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 班次 %s", pkgerrors.ErrOwnership, shiftID)
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	if shift.DepartmentID != departmentID {
		return nil, fmt.Errorf("%w: 班次 %s 不属于部门 %s", pkgerrors.ErrOwnership, shiftID, departmentID)
	}
	if _, err := repo.Directory.GetRole(ctx, roleCode); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 角色 %s", pkgerrors.ErrOwnership, roleCode)
		}
		s.logger.Error("查询角色失败", zap.Error(err))
		return nil, err
	}
	return shift, nil
}

// ════════════════════════════════════════════════════════════
// Update
// ════════════════════════════════════════════════════════════

func (s *requirementService) Update(ctx context.Context, tenantID, callerID, id string, req *dto.UpdateRequirementRequest) (*dto.RequirementResponse, error) {
	repo := s.provider.ForTenant(tenantID)

	current, err := repo.Requirement.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 需求版本 %s", pkgerrors.ErrNotFound, id)
		}
		s.logger.Error("查询需求版本失败", zap.Error(err))
		return nil, err
	}
	if req.Version != current.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	merged := *current
	if req.ShiftID != nil {
		merged.ShiftID = *req.ShiftID
	}
	if req.RoleCode != nil {
		merged.RoleCode = normalizeRoleCode(*req.RoleCode)
	}
	if req.RequiredCount != nil {
		merged.RequiredCount = *req.RequiredCount
	}
	if req.EffectiveFrom != nil {
		if merged.EffectiveFrom, err = parseDate("effective_from", *req.EffectiveFrom); err != nil {
			return nil, err
		}
	}
	if req.EffectiveTo != nil {
		if merged.EffectiveTo, err = parseDate("effective_to", *req.EffectiveTo); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		merged.IsActive = *req.IsActive
	}

	// 合并后整体重新校验
	if merged.EffectiveFrom.After(merged.EffectiveTo) {
		return nil, fmt.Errorf("%w: 开始日期不能晚于结束日期", pkgerrors.ErrValidation)
	}
	if merged.RequiredCount < 1 {
		return nil, fmt.Errorf("%w: required_count 必须大于等于 1", pkgerrors.ErrValidation)
	}
	if merged.RoleCode == "" {
		return nil, fmt.Errorf("%w: role_code 不能为空", pkgerrors.ErrValidation)
	}

	keyChanged := merged.ShiftID != current.ShiftID || merged.RoleCode != current.RoleCode
	rangeChanged := !merged.EffectiveFrom.Equal(current.EffectiveFrom) || !merged.EffectiveTo.Equal(current.EffectiveTo)
	activated := merged.IsActive && !current.IsActive

	if keyChanged {
		shift, err := s.checkOwnership(ctx, repo, merged.DepartmentID, merged.ShiftID, merged.RoleCode)
		if err != nil {
			return nil, err
		}
		merged.Shift = shift
	}
	merged.UpdatedBy = &callerID

	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		if merged.IsActive && (keyChanged || rangeChanged || activated) {
			if err := s.checkOverlap(ctx, tx, &merged, merged.RequirementID); err != nil {
				return err
			}
		}
		if err := tx.Requirement.Update(ctx, &merged); err != nil {
			if err != pkgerrors.ErrOptimisticLock {
				s.logger.Error("更新需求版本失败", zap.Error(err))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRequirementResponse(&merged), nil
}

// ════════════════════════════════════════════════════════════
// Get / Delete / 查询
// ════════════════════════════════════════════════════════════

func (s *requirementService) Get(ctx context.Context, tenantID, id string) (*dto.RequirementResponse, error) {
	v, err := s.provider.ForTenant(tenantID).Requirement.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 需求版本 %s", pkgerrors.ErrNotFound, id)
		}
		s.logger.Error("查询需求版本失败", zap.Error(err))
		return nil, err
	}
	return toRequirementResponse(v), nil
}

func (s *requirementService) Delete(ctx context.Context, tenantID, callerID, id string) error {
	if err := s.provider.ForTenant(tenantID).Requirement.Delete(ctx, id, callerID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: 需求版本 %s", pkgerrors.ErrNotFound, id)
		}
		s.logger.Error("删除需求版本失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *requirementService) QueryActive(ctx context.Context, tenantID, departmentID, shiftID string, date time.Time) ([]dto.RequirementResponse, error) {
	date = model.TruncateDate(date)
	list, err := s.provider.ForTenant(tenantID).Requirement.List(ctx, repository.RequirementFilter{
		DepartmentID: departmentID,
		ShiftID:      shiftID,
		Date:         &date,
		ActiveOnly:   true,
	})
	if err != nil {
		s.logger.Error("查询生效需求版本失败", zap.Error(err))
		return nil, err
	}
	return toRequirementResponses(list), nil
}

func (s *requirementService) ListByDepartment(ctx context.Context, tenantID string, req *dto.RequirementListRequest) ([]dto.RequirementResponse, error) {
	filter := repository.RequirementFilter{
		DepartmentID: req.DepartmentID,
		ShiftID:      req.ShiftID,
		ActiveOnly:   req.ActiveOnly,
	}
	if req.Date != "" {
		date, err := parseDate("date", req.Date)
		if err != nil {
			return nil, err
		}
		filter.Date = &date
	}
	list, err := s.provider.ForTenant(tenantID).Requirement.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询需求版本列表失败", zap.Error(err))
		return nil, err
	}
	return toRequirementResponses(list), nil
}

// ── 转换 ──

func toRequirementResponse(v *model.RequirementVersion) *dto.RequirementResponse {
	resp := &dto.RequirementResponse{
		ID:            v.RequirementID,
		DepartmentID:  v.DepartmentID,
		ShiftID:       v.ShiftID,
		RoleCode:      v.RoleCode,
		RequiredCount: v.RequiredCount,
		EffectiveFrom: model.FormatDate(v.EffectiveFrom),
		EffectiveTo:   model.FormatDate(v.EffectiveTo),
		IsActive:      v.IsActive,
		Version:       v.Version,
		CreatedAt:     formatTime(v.CreatedAt),
		UpdatedAt:     formatTime(v.UpdatedAt),
	}
	if v.Shift != nil {
		resp.ShiftName = v.Shift.Name
	}
	return resp
}

func toRequirementResponses(list []model.RequirementVersion) []dto.RequirementResponse {
	result := make([]dto.RequirementResponse, 0, len(list))
	for i := range list {
		result = append(result, *toRequirementResponse(&list[i]))
	}
	return result
}
