package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/internal/dto"
	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	"github.com/sourav-maji/RosterPro/pkg/archive"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
	"github.com/sourav-maji/RosterPro/pkg/metrics"
	"github.com/sourav-maji/RosterPro/pkg/solver"
)

const recentRunLimit = 20

// SchedulerService 求解编排：构建载荷 → 调用求解器 → 记录运行 → 落库
type SchedulerService interface {
	// 预览：不写排班记录，仅返回结果与映射，并尽力记录一次运行
	Preview(ctx context.Context, tenantID, callerID string, req *dto.PreviewRequest) (*dto.PreviewResponse, error)
	// 将客户端提交的结果落库
	Save(ctx context.Context, tenantID, callerID string, req *dto.SaveScheduleRequest) (*dto.CommitResponse, error)
	// 将已记录的运行结果落库
	CommitRun(ctx context.Context, tenantID, callerID, runID string) (*dto.CommitResponse, error)
	ListRuns(ctx context.Context, tenantID string, req *dto.ScheduleRunListRequest) ([]dto.ScheduleRunResponse, error)
	GetRun(ctx context.Context, tenantID, runID string) (*dto.ScheduleRunResponse, error)
}

// SchedulerDeps SchedulerService 依赖
type SchedulerDeps struct {
	Provider      repository.Provider
	Builder       PayloadBuilder
	Solver        SolverInvoker
	Allocation    AllocationService
	Archive       archive.Store
	ArchivePrefix string
	Metrics       *metrics.Metrics
}

type schedulerService struct {
	SchedulerDeps
	logger *zap.Logger
	now    func() time.Time
}

// NewSchedulerService 创建 SchedulerService 实例
func NewSchedulerService(d SchedulerDeps, logger *zap.Logger) SchedulerService {
	if d.Archive == nil {
		d.Archive = archive.Nop{}
	}
	return &schedulerService{SchedulerDeps: d, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// Preview
// ════════════════════════════════════════════════════════════

func (s *schedulerService) Preview(ctx context.Context, tenantID, callerID string, req *dto.PreviewRequest) (*dto.PreviewResponse, error) {
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}

	payload, mapping, err := s.Builder.Build(ctx, tenantID, req.DepartmentID, start)
	if err != nil {
		return nil, err
	}
	hash, err := solver.Fingerprint(payload)
	if err != nil {
		s.logger.Error("计算载荷指纹失败", zap.Error(err))
		return nil, err
	}

	began := s.now()
	result, invokeErr := s.Solver.Invoke(ctx, payload)
	s.Metrics.ObserveSolver(solverOutcome(invokeErr), time.Since(began))

	run := &model.ScheduleRun{
		DepartmentID: req.DepartmentID,
		WeekStart:    start,
		PayloadHash:  hash,
		TriggeredBy:  callerID,
	}
	if invokeErr != nil {
		s.logger.Warn("求解器调用失败",
			zap.String("tenant_id", tenantID),
			zap.String("department_id", req.DepartmentID),
			zap.String("payload_hash", hash),
			zap.Error(invokeErr),
		)
		run.Status = solver.StatusFailed
		run.ErrorMessage = invokeErr.Error()
		var rejected *solver.RejectedError
		if errors.As(invokeErr, &rejected) {
			run.OutputPayload, _ = model.NewJSON(rejected.Detail)
		}
		s.recordRun(ctx, tenantID, run, payload, nil, mapping)
		return nil, invokeErr
	}

	run.Status = result.RunStatus()
	run.UnmetCount = result.UnmetCount()
	s.recordRun(ctx, tenantID, run, payload, result, mapping)

	return &dto.PreviewResponse{
		RunID:       run.RunID,
		PayloadHash: hash,
		Payload:     payload,
		Result:      result,
		Mapping:     mapping,
	}, nil
}

// recordRun 尽力记录一次求解运行；失败只记日志，不影响调用方
// 使用 WithoutCancel：客户端断开后仍完成记录
func (s *schedulerService) recordRun(ctx context.Context, tenantID string, run *model.ScheduleRun, payload *solver.Payload, result *solver.Result, mapping *solver.Mapping) {
	ctx = context.WithoutCancel(ctx)
	s.Metrics.IncScheduleRun(run.Status)

	var err error
	if run.InputPayload, err = model.NewJSON(payload); err != nil {
		s.logger.Error("序列化求解载荷失败", zap.Error(err))
		return
	}
	if result != nil {
		if run.OutputPayload, err = model.NewJSON(result); err != nil {
			s.logger.Error("序列化求解结果失败", zap.Error(err))
			return
		}
	}
	if mapping != nil {
		if run.Mapping, err = model.NewJSON(mapping); err != nil {
			s.logger.Error("序列化映射失败", zap.Error(err))
			return
		}
	}

	if err := s.Provider.ForTenant(tenantID).ScheduleRun.Create(ctx, run); err != nil {
		s.logger.Error("记录求解运行失败",
			zap.String("tenant_id", tenantID),
			zap.String("payload_hash", run.PayloadHash),
			zap.Error(err),
		)
		run.RunID = ""
		return
	}

	body, err := json.Marshal(runArchive{
		RunID:        run.RunID,
		TenantID:     tenantID,
		DepartmentID: run.DepartmentID,
		WeekStart:    model.FormatDate(run.WeekStart),
		PayloadHash:  run.PayloadHash,
		Status:       run.Status,
		Input:        json.RawMessage(run.InputPayload),
		Output:       json.RawMessage(run.OutputPayload),
		Mapping:      json.RawMessage(run.Mapping),
	})
	if err != nil {
		s.logger.Error("序列化归档失败", zap.Error(err))
		return
	}
	key := archive.Key(s.ArchivePrefix, tenantID, run.RunID, s.now())
	if err := s.Archive.Put(ctx, key, body); err != nil {
		s.logger.Warn("归档求解运行失败", zap.String("key", key), zap.Error(err))
	}
}

// runArchive 归档对象结构
type runArchive struct {
	RunID        string          `json:"run_id"`
	TenantID     string          `json:"tenant_id"`
	DepartmentID string          `json:"department_id"`
	WeekStart    string          `json:"week_start"`
	PayloadHash  string          `json:"payload_hash"`
	Status       string          `json:"status"`
	Input        json.RawMessage `json:"input"`
	Output       json.RawMessage `json:"output,omitempty"`
	Mapping      json.RawMessage `json:"mapping,omitempty"`
}

func solverOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, pkgerrors.ErrSolverRejected):
		return "rejected"
	case errors.Is(err, pkgerrors.ErrSolverUnavailable):
		return "unavailable"
	case errors.Is(err, pkgerrors.ErrInvalidResult):
		return "invalid"
	default:
		return "error"
	}
}

// ════════════════════════════════════════════════════════════
// Save / CommitRun
// ════════════════════════════════════════════════════════════

func (s *schedulerService) Save(ctx context.Context, tenantID, callerID string, req *dto.SaveScheduleRequest) (*dto.CommitResponse, error) {
	if req.RunID != nil {
		run, err := s.loadRun(ctx, tenantID, *req.RunID)
		if err != nil {
			return nil, err
		}
		if run.DepartmentID != req.DepartmentID {
			return nil, fmt.Errorf("%w: 运行记录 %s 不属于部门 %s", pkgerrors.ErrValidation, run.RunID, req.DepartmentID)
		}
	}
	return s.Allocation.Commit(ctx, tenantID, callerID, req.DepartmentID, req.Result, req.Mapping, req.RunID)
}

func (s *schedulerService) CommitRun(ctx context.Context, tenantID, callerID, runID string) (*dto.CommitResponse, error) {
	run, err := s.loadRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if run.Status == solver.StatusFailed {
		return nil, fmt.Errorf("%w: 运行记录 %s 状态为 FAILED", pkgerrors.ErrInvalidResult, runID)
	}

	var result solver.Result
	if err := model.DecodeJSON(run.OutputPayload, &result); err != nil || len(result.Schedule) == 0 {
		return nil, fmt.Errorf("%w: 运行记录 %s 无可用结果", pkgerrors.ErrInvalidResult, runID)
	}
	var mapping solver.Mapping
	if err := model.DecodeJSON(run.Mapping, &mapping); err != nil || len(mapping.Days) == 0 {
		return nil, fmt.Errorf("%w: 运行记录 %s 缺少映射", pkgerrors.ErrInvalidResult, runID)
	}

	id := run.RunID
	return s.Allocation.Commit(ctx, tenantID, callerID, run.DepartmentID, &result, &mapping, &id)
}

func (s *schedulerService) loadRun(ctx context.Context, tenantID, runID string) (*model.ScheduleRun, error) {
	run, err := s.Provider.ForTenant(tenantID).ScheduleRun.GetByID(ctx, runID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: 运行记录 %s", pkgerrors.ErrNotFound, runID)
		}
		s.logger.Error("查询运行记录失败", zap.Error(err))
		return nil, err
	}
	return run, nil
}

// ════════════════════════════════════════════════════════════
// 运行记录查询
// ════════════════════════════════════════════════════════════

func (s *schedulerService) ListRuns(ctx context.Context, tenantID string, req *dto.ScheduleRunListRequest) ([]dto.ScheduleRunResponse, error) {
	runs, err := s.Provider.ForTenant(tenantID).ScheduleRun.ListRecent(ctx, req.DepartmentID, recentRunLimit)
	if err != nil {
		s.logger.Error("查询运行记录列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ScheduleRunResponse, 0, len(runs))
	for i := range runs {
		result = append(result, *toScheduleRunResponse(&runs[i], false))
	}
	return result, nil
}

func (s *schedulerService) GetRun(ctx context.Context, tenantID, runID string) (*dto.ScheduleRunResponse, error) {
	run, err := s.loadRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	return toScheduleRunResponse(run, true), nil
}

func toScheduleRunResponse(r *model.ScheduleRun, withPayloads bool) *dto.ScheduleRunResponse {
	resp := &dto.ScheduleRunResponse{
		ID:           r.RunID,
		DepartmentID: r.DepartmentID,
		WeekStart:    model.FormatDate(r.WeekStart),
		PayloadHash:  r.PayloadHash,
		Status:       r.Status,
		UnmetCount:   r.UnmetCount,
		ErrorMessage: r.ErrorMessage,
		TriggeredBy:  r.TriggeredBy,
		CreatedAt:    formatTime(r.CreatedAt),
	}
	if withPayloads {
		resp.InputPayload = json.RawMessage(r.InputPayload)
		resp.OutputPayload = json.RawMessage(r.OutputPayload)
		resp.Mapping = json.RawMessage(r.Mapping)
	}
	return resp
}
