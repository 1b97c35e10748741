package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
	"github.com/sourav-maji/RosterPro/pkg/metrics"
	"github.com/sourav-maji/RosterPro/pkg/solver"
)

// AllocationService 排班记录业务接口
//
// 求解结果落库只替换同部门、同日期的 SOLVER 记录，MANUAL 记录保持不变；
// 每个 (租户, 员工, 日期) 至多一条记录。
type AllocationService interface {
	// 求解结果落库（单事务：删除旧 SOLVER 记录 → 冲突检查 → 批量插入）
	Commit(ctx context.Context, tenantID, callerID, departmentID string, result *solver.Result, mapping *solver.Mapping, runID *string) (*dto.CommitResponse, error)
	// 手动排班
	ManualAssign(ctx context.Context, tenantID, callerID string, req *dto.ManualAssignRequest) (*dto.AllocationResponse, error)
	// 换人
	Swap(ctx context.Context, tenantID, callerID, allocationID string, req *dto.SwapAllocationRequest) (*dto.AllocationResponse, error)
	// 手动变更状态（ASSIGNED / LEAVE / ABSENT）
	UpdateStatus(ctx context.Context, tenantID, callerID, allocationID string, req *dto.UpdateAllocationStatusRequest) (*dto.AllocationResponse, error)
	Get(ctx context.Context, tenantID, allocationID string) (*dto.AllocationResponse, error)
	List(ctx context.Context, tenantID string, req *dto.AllocationListRequest) ([]dto.AllocationResponse, int64, error)
	// 部门日看板（按班次分组）
	Board(ctx context.Context, tenantID string, req *dto.BoardRequest) (*dto.BoardResponse, error)
	// 员工日历
	Calendar(ctx context.Context, tenantID string, req *dto.CalendarRequest) ([]dto.CalendarEntry, error)
	ListChangeLogs(ctx context.Context, tenantID, allocationID string, req *dto.AllocationChangeLogListRequest) ([]dto.AllocationChangeLogResponse, int64, error)
}

type allocationService struct {
	provider repository.Provider
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例
func NewAllocationService(provider repository.Provider, m *metrics.Metrics, logger *zap.Logger) AllocationService {
	return &allocationService{provider: provider, metrics: m, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Commit：求解结果落库
// ════════════════════════════════════════════════════════════

type staffDate struct {
	staffID string
	date    string
}

func (s *allocationService) Commit(ctx context.Context, tenantID, callerID, departmentID string, result *solver.Result, mapping *solver.Mapping, runID *string) (*dto.CommitResponse, error) {
	if result == nil || len(result.Schedule) == 0 {
		return nil, fmt.Errorf("%w: schedule 为空", pkgerrors.ErrInvalidResult)
	}
	if mapping == nil {
		return nil, fmt.Errorf("%w: 缺少 mapping", pkgerrors.ErrInvalidResult)
	}

	// ── 1. 展开为草稿记录 ──
	objective := result.Objective
	var drafts []model.Allocation
	var dates []time.Time
	dateSeen := make(map[string]bool)
	pairSeen := make(map[staffDate]bool)
	shiftIDs := make(map[string]bool)
	staffIDs := make(map[string]bool)

	for _, day := range result.Schedule {
		iso, ok := mapping.Days[day.Day]
		if !ok {
			return nil, fmt.Errorf("%w: 未知日期标签 %q", pkgerrors.ErrInvalidResult, day.Day)
		}
		date, err := model.ParseDate(iso)
		if err != nil {
			return nil, fmt.Errorf("%w: 日期 %q 无法解析", pkgerrors.ErrInvalidResult, iso)
		}
		if !dateSeen[iso] {
			dateSeen[iso] = true
			dates = append(dates, date)
		}

		names := make([]string, 0, len(day.Shifts))
		for name := range day.Shifts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			shiftID, ok := mapping.Shifts[name]
			if !ok {
				return nil, fmt.Errorf("%w: 未知班次 %q", pkgerrors.ErrInvalidResult, name)
			}
			if _, err := uuid.Parse(shiftID); err != nil {
				return nil, fmt.Errorf("%w: 班次 %q 的映射 ID %q 无效", pkgerrors.ErrInvalidResult, name, shiftID)
			}
			shiftIDs[shiftID] = true
			for _, code := range day.Shifts[name] {
				staffID, ok := mapping.Staff[code]
				if !ok {
					return nil, fmt.Errorf("%w: 未知员工 %q", pkgerrors.ErrInvalidResult, code)
				}
				if _, err := uuid.Parse(staffID); err != nil {
					return nil, fmt.Errorf("%w: 员工 %q 的映射 ID %q 无效", pkgerrors.ErrInvalidResult, code, staffID)
				}
				key := staffDate{staffID: staffID, date: iso}
				if pairSeen[key] {
					return nil, fmt.Errorf("%w: 员工 %s 在 %s 被安排了多个班次", pkgerrors.ErrConflict, staffID, iso)
				}
				pairSeen[key] = true
				staffIDs[staffID] = true

				a := model.Allocation{
					DepartmentID:   departmentID,
					ShiftID:        shiftID,
					StaffID:        staffID,
					Date:           date,
					Source:         model.SourceSolver,
					Status:         model.AllocationAssigned,
					ObjectiveScore: &objective,
					ScheduleRunID:  runID,
				}
				a.CreatedBy = &callerID
				a.UpdatedBy = &callerID
				drafts = append(drafts, a)
			}
		}
	}

	// ── 2. 归属校验 ──
	repo := s.provider.ForTenant(tenantID)
	if err := s.checkCommitOwnership(ctx, repo, departmentID, keys(shiftIDs), keys(staffIDs)); err != nil {
		return nil, err
	}

	// ── 3. 单事务替换 ──
	var deleted int64
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := tx.Allocation.DeleteSolverRows(ctx, departmentID, dates)
		if err != nil {
			s.logger.Error("删除旧求解记录失败", zap.Error(err))
			return err
		}
		deleted = n

		remaining, err := tx.Allocation.ListByStaffDates(ctx, keys(staffIDs), dates)
		if err != nil {
			s.logger.Error("查询剩余排班记录失败", zap.Error(err))
			return err
		}
		for _, r := range remaining {
			key := staffDate{staffID: r.StaffID, date: model.FormatDate(r.Date)}
			if pairSeen[key] {
				return fmt.Errorf("%w: 员工 %s 在 %s 已有 %s 记录", pkgerrors.ErrConflict, r.StaffID, key.date, r.Source)
			}
		}

		if err := tx.Allocation.CreateBatch(ctx, drafts); err != nil {
			s.logger.Error("批量写入排班记录失败", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddAllocations(model.SourceSolver, len(drafts))
	s.logger.Info("求解结果已落库",
		zap.String("tenant_id", tenantID),
		zap.String("department_id", departmentID),
		zap.Int64("deleted", deleted),
		zap.Int("inserted", len(drafts)),
	)

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	isoDates := make([]string, len(dates))
	for i, d := range dates {
		isoDates[i] = model.FormatDate(d)
	}
	return &dto.CommitResponse{
		DepartmentID: departmentID,
		RunID:        runID,
		Dates:        isoDates,
		Deleted:      deleted,
		Inserted:     len(drafts),
	}, nil
}

// checkCommitOwnership 部门、班次与员工必须属于当前租户且属于该部门
func (s *allocationService) checkCommitOwnership(ctx context.Context, repo *repository.Repository, departmentID string, shiftIDs, staffIDs []string) error {
	if _, err := repo.Directory.GetDepartment(ctx, departmentID); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: 部门 %s", pkgerrors.ErrOwnership, departmentID)
		}
		s.logger.Error("查询部门失败", zap.Error(err))
		return err
	}

	shifts, err := repo.Directory.ListShiftsByIDs(ctx, shiftIDs)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return err
	}
	found := make(map[string]bool, len(shifts))
	for _, sh := range shifts {
		if sh.DepartmentID == departmentID {
			found[sh.ShiftID] = true
		}
	}
	for _, id := range shiftIDs {
		if !found[id] {
			return fmt.Errorf("%w: 班次 %s 不属于部门 %s", pkgerrors.ErrOwnership, id, departmentID)
		}
	}

	staff, err := repo.Directory.ListStaffByIDs(ctx, staffIDs)
	if err != nil {
		s.logger.Error("查询员工失败", zap.Error(err))
		return err
	}
	found = make(map[string]bool, len(staff))
	for _, st := range staff {
		if st.DepartmentID == departmentID {
			found[st.StaffID] = true
		}
	}
	for _, id := range staffIDs {
		if !found[id] {
			return fmt.Errorf("%w: 员工 %s 不属于部门 %s", pkgerrors.ErrOwnership, id, departmentID)
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 手动操作：ManualAssign / Swap / UpdateStatus
// ════════════════════════════════════════════════════════════

func (s *allocationService) ManualAssign(ctx context.Context, tenantID, callerID string, req *dto.ManualAssignRequest) (*dto.AllocationResponse, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	repo := s.provider.ForTenant(tenantID)
	if err := s.checkCommitOwnership(ctx, repo, req.DepartmentID, []string{req.ShiftID}, []string{req.StaffID}); err != nil {
		return nil, err
	}
	staff, err := repo.Directory.GetStaff(ctx, req.StaffID)
	if err != nil {
		s.logger.Error("查询员工失败", zap.Error(err))
		return nil, err
	}
	if !staff.IsActive {
		return nil, fmt.Errorf("%w: 员工 %s 已停用", pkgerrors.ErrValidation, req.StaffID)
	}

	alloc := &model.Allocation{
		DepartmentID: req.DepartmentID,
		ShiftID:      req.ShiftID,
		StaffID:      req.StaffID,
		Date:         date,
		Source:       model.SourceManual,
		Status:       model.AllocationAssigned,
		Notes:        req.Notes,
	}
	alloc.CreatedBy = &callerID
	alloc.UpdatedBy = &callerID

	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		exists, err := tx.Allocation.ExistsForStaffDate(ctx, req.StaffID, date, "")
		if err != nil {
			s.logger.Error("检查排班唯一性失败", zap.Error(err))
			return err
		}
		if exists {
			return fmt.Errorf("%w: 员工 %s 在 %s 已有排班", pkgerrors.ErrConflict, req.StaffID, req.Date)
		}
		if err := tx.Allocation.Create(ctx, alloc); err != nil {
			return err
		}
		return s.appendChangeLog(ctx, tx, &model.AllocationChangeLog{
			AllocationID: alloc.AllocationID,
			ChangeType:   model.ChangeManualAssign,
			NewStaffID:   alloc.StaffID,
			NewStatus:    alloc.Status,
			Notes:        req.Notes,
			OperatorID:   callerID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddAllocations(model.SourceManual, 1)
	return s.Get(ctx, tenantID, alloc.AllocationID)
}

func (s *allocationService) Swap(ctx context.Context, tenantID, callerID, allocationID string, req *dto.SwapAllocationRequest) (*dto.AllocationResponse, error) {
	repo := s.provider.ForTenant(tenantID)

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		alloc, err := s.loadAllocation(ctx, tx, allocationID)
		if err != nil {
			return err
		}
		if alloc.StaffID == req.NewStaffID {
			return fmt.Errorf("%w: 新员工与原员工相同", pkgerrors.ErrValidation)
		}

		newStaff, err := tx.Directory.GetStaff(ctx, req.NewStaffID)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: 员工 %s", pkgerrors.ErrOwnership, req.NewStaffID)
			}
			s.logger.Error("查询员工失败", zap.Error(err))
			return err
		}
		if newStaff.DepartmentID != alloc.DepartmentID {
			return fmt.Errorf("%w: 员工 %s 不属于部门 %s", pkgerrors.ErrOwnership, req.NewStaffID, alloc.DepartmentID)
		}
		if !newStaff.IsActive {
			return fmt.Errorf("%w: 员工 %s 已停用", pkgerrors.ErrValidation, req.NewStaffID)
		}

		exists, err := tx.Allocation.ExistsForStaffDate(ctx, req.NewStaffID, alloc.Date, alloc.AllocationID)
		if err != nil {
			s.logger.Error("检查排班唯一性失败", zap.Error(err))
			return err
		}
		if exists {
			return fmt.Errorf("%w: 员工 %s 在 %s 已有排班", pkgerrors.ErrConflict, req.NewStaffID, model.FormatDate(alloc.Date))
		}

		originalStaff := alloc.StaffID
		originalStatus := alloc.Status
		alloc.StaffID = req.NewStaffID
		alloc.Source = model.SourceManual
		alloc.Status = model.AllocationSwapped
		if req.Notes != "" {
			alloc.Notes = req.Notes
		}
		alloc.UpdatedBy = &callerID
		if err := tx.Allocation.Update(ctx, alloc); err != nil {
			return err
		}

		return s.appendChangeLog(ctx, tx, &model.AllocationChangeLog{
			AllocationID:    alloc.AllocationID,
			ChangeType:      model.ChangeSwap,
			OriginalStaffID: &originalStaff,
			NewStaffID:      alloc.StaffID,
			OriginalStatus:  originalStatus,
			NewStatus:       alloc.Status,
			Notes:           req.Notes,
			OperatorID:      callerID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, allocationID)
}

// manualStatuses 可通过手动操作直接设置的状态；SWAPPED 只能由换人产生
var manualStatuses = map[string]bool{
	model.AllocationAssigned: true,
	model.AllocationLeave:    true,
	model.AllocationAbsent:   true,
}

func (s *allocationService) UpdateStatus(ctx context.Context, tenantID, callerID, allocationID string, req *dto.UpdateAllocationStatusRequest) (*dto.AllocationResponse, error) {
	if !manualStatuses[req.Status] {
		return nil, fmt.Errorf("%w: 不支持手动设置状态 %q", pkgerrors.ErrValidation, req.Status)
	}

	repo := s.provider.ForTenant(tenantID)
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		alloc, err := s.loadAllocation(ctx, tx, allocationID)
		if err != nil {
			return err
		}

		originalStatus := alloc.Status
		alloc.Status = req.Status
		alloc.Source = model.SourceManual
		if req.Notes != "" {
			alloc.Notes = req.Notes
		}
		alloc.UpdatedBy = &callerID
		if err := tx.Allocation.Update(ctx, alloc); err != nil {
			return err
		}

		return s.appendChangeLog(ctx, tx, &model.AllocationChangeLog{
			AllocationID:   alloc.AllocationID,
			ChangeType:     model.ChangeStatus,
			NewStaffID:     alloc.StaffID,
			OriginalStatus: originalStatus,
			NewStatus:      alloc.Status,
			Notes:          req.Notes,
			OperatorID:     callerID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, allocationID)
}

func (s *allocationService) loadAllocation(ctx context.Context, repo *repository.Repository, id string) (*model.Allocation, error) {
	alloc, err := repo.Allocation.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 排班记录 %s", pkgerrors.ErrNotFound, id)
		}
		s.logger.Error("查询排班记录失败", zap.Error(err))
		return nil, err
	}
	return alloc, nil
}

func (s *allocationService) appendChangeLog(ctx context.Context, tx *repository.Repository, log *model.AllocationChangeLog) error {
	if err := tx.ChangeLog.Create(ctx, log); err != nil {
		s.logger.Error("写入排班变更日志失败", zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *allocationService) Get(ctx context.Context, tenantID, allocationID string) (*dto.AllocationResponse, error) {
	alloc, err := s.loadAllocation(ctx, s.provider.ForTenant(tenantID), allocationID)
	if err != nil {
		return nil, err
	}
	return toAllocationResponse(alloc), nil
}

func (s *allocationService) List(ctx context.Context, tenantID string, req *dto.AllocationListRequest) ([]dto.AllocationResponse, int64, error) {
	filter := repository.AllocationFilter{
		DepartmentID: req.DepartmentID,
		ShiftID:      req.ShiftID,
		StaffID:      req.StaffID,
		Source:       req.Source,
		Status:       req.Status,
	}
	if req.From != "" {
		from, err := parseDate("from", req.From)
		if err != nil {
			return nil, 0, err
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := parseDate("to", req.To)
		if err != nil {
			return nil, 0, err
		}
		filter.To = &to
	}

	list, total, err := s.provider.ForTenant(tenantID).Allocation.List(ctx, filter, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询排班记录列表失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.AllocationResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAllocationResponse(&list[i]))
	}
	return result, total, nil
}

func (s *allocationService) Board(ctx context.Context, tenantID string, req *dto.BoardRequest) (*dto.BoardResponse, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	repo := s.provider.ForTenant(tenantID)
	if _, err := repo.Directory.GetDepartment(ctx, req.DepartmentID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 部门 %s", pkgerrors.ErrNotFound, req.DepartmentID)
		}
		s.logger.Error("查询部门失败", zap.Error(err))
		return nil, err
	}

	shifts, err := repo.Directory.ListShifts(ctx, req.DepartmentID, false)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	allocs, _, err := repo.Allocation.List(ctx, repository.AllocationFilter{
		DepartmentID: req.DepartmentID,
		From:         &date,
		To:           &date,
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询排班记录失败", zap.Error(err))
		return nil, err
	}

	byShift := make(map[string][]dto.BoardEntry)
	for _, a := range allocs {
		byShift[a.ShiftID] = append(byShift[a.ShiftID], dto.BoardEntry{
			AllocationID: a.AllocationID,
			StaffID:      a.StaffID,
			StaffName:    staffName(&a),
			Status:       a.Status,
			Source:       a.Source,
		})
	}

	board := &dto.BoardResponse{DepartmentID: req.DepartmentID, Date: req.Date, Shifts: []dto.BoardShift{}}
	for _, sh := range shifts {
		entries, ok := byShift[sh.ShiftID]
		if !ok && !sh.IsActive {
			continue // 已停用且当日无人的班次不展示
		}
		if entries == nil {
			entries = []dto.BoardEntry{}
		}
		board.Shifts = append(board.Shifts, dto.BoardShift{ShiftID: sh.ShiftID, ShiftName: sh.Name, Staff: entries})
	}
	return board, nil
}

func (s *allocationService) Calendar(ctx context.Context, tenantID string, req *dto.CalendarRequest) ([]dto.CalendarEntry, error) {
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	repo := s.provider.ForTenant(tenantID)
	if _, err := repo.Directory.GetStaff(ctx, req.StaffID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 员工 %s", pkgerrors.ErrNotFound, req.StaffID)
		}
		s.logger.Error("查询员工失败", zap.Error(err))
		return nil, err
	}

	allocs, _, err := repo.Allocation.List(ctx, repository.AllocationFilter{
		StaffID: req.StaffID,
		From:    &from,
		To:      &to,
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询员工排班失败", zap.Error(err))
		return nil, err
	}

	entries := make([]dto.CalendarEntry, 0, len(allocs))
	for _, a := range allocs {
		e := dto.CalendarEntry{
			AllocationID: a.AllocationID,
			Date:         model.FormatDate(a.Date),
			ShiftID:      a.ShiftID,
			Status:       a.Status,
			Source:       a.Source,
		}
		if a.Shift != nil {
			e.ShiftName = a.Shift.Name
			e.StartTime = a.Shift.StartTime
			e.EndTime = a.Shift.EndTime
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *allocationService) ListChangeLogs(ctx context.Context, tenantID, allocationID string, req *dto.AllocationChangeLogListRequest) ([]dto.AllocationChangeLogResponse, int64, error) {
	repo := s.provider.ForTenant(tenantID)
	if _, err := s.loadAllocation(ctx, repo, allocationID); err != nil {
		return nil, 0, err
	}
	logs, total, err := repo.ChangeLog.ListByAllocation(ctx, allocationID, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询变更日志失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.AllocationChangeLogResponse, 0, len(logs))
	for _, l := range logs {
		result = append(result, dto.AllocationChangeLogResponse{
			ID:              l.ChangeLogID,
			AllocationID:    l.AllocationID,
			ChangeType:      l.ChangeType,
			OriginalStaffID: l.OriginalStaffID,
			NewStaffID:      l.NewStaffID,
			OriginalStatus:  l.OriginalStatus,
			NewStatus:       l.NewStatus,
			Notes:           l.Notes,
			OperatorID:      l.OperatorID,
			CreatedAt:       formatTime(l.CreatedAt),
		})
	}
	return result, total, nil
}

// ── 转换 ──

func toAllocationResponse(a *model.Allocation) *dto.AllocationResponse {
	resp := &dto.AllocationResponse{
		ID:             a.AllocationID,
		DepartmentID:   a.DepartmentID,
		ShiftID:        a.ShiftID,
		StaffID:        a.StaffID,
		StaffName:      staffName(a),
		Date:           model.FormatDate(a.Date),
		Source:         a.Source,
		Status:         a.Status,
		ObjectiveScore: a.ObjectiveScore,
		Notes:          a.Notes,
		ScheduleRunID:  a.ScheduleRunID,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
	if a.Shift != nil {
		resp.ShiftName = a.Shift.Name
	}
	return resp
}

func staffName(a *model.Allocation) string {
	if a.Staff != nil {
		return a.Staff.Name
	}
	return ""
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
