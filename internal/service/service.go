package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	"github.com/sourav-maji/RosterPro/pkg/archive"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
	"github.com/sourav-maji/RosterPro/pkg/metrics"
	"github.com/sourav-maji/RosterPro/pkg/solver"
)

// SolverInvoker 外部求解器调用边界（*solver.Client 实现）
type SolverInvoker interface {
	Invoke(ctx context.Context, payload *solver.Payload) (*solver.Result, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Requirement RequirementService
	Payload     PayloadBuilder
	Allocation  AllocationService
	Scheduler   SchedulerService
	Coverage    CoverageService
	Export      ExportService
}

// Deps Service 层依赖
type Deps struct {
	Provider      repository.Provider
	Solver        SolverInvoker
	Archive       archive.Store // 可为 nil
	ArchivePrefix string
	Metrics       *metrics.Metrics // 可为 nil
	Logger        *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	store := d.Archive
	if store == nil {
		store = archive.Nop{}
	}
	payload := NewPayloadBuilder(d.Provider, d.Logger)
	allocation := NewAllocationService(d.Provider, d.Metrics, d.Logger)
	return &Service{
		Requirement: NewRequirementService(d.Provider, d.Logger),
		Payload:     payload,
		Allocation:  allocation,
		Scheduler: NewSchedulerService(SchedulerDeps{
			Provider:      d.Provider,
			Builder:       payload,
			Solver:        d.Solver,
			Allocation:    allocation,
			Archive:       store,
			ArchivePrefix: d.ArchivePrefix,
			Metrics:       d.Metrics,
		}, d.Logger),
		Coverage: NewCoverageService(d.Provider, d.Logger),
		Export:   NewExportService(d.Provider, d.Logger),
	}
}

// ── 公共辅助 ──

// parseDate 解析 YYYY-MM-DD，失败归类为参数错误
func parseDate(field, value string) (time.Time, error) {
	t, err := model.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s 日期格式应为 YYYY-MM-DD", pkgerrors.ErrValidation, field)
	}
	return t, nil
}

// parseRange 解析闭区间并校验 from ≤ to
func parseRange(fromValue, toValue string) (time.Time, time.Time, error) {
	from, err := parseDate("from", fromValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate("to", toValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 开始日期不能晚于结束日期", pkgerrors.ErrValidation)
	}
	return from, to, nil
}

// isNotFound gorm 记录不存在
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func normalizeRoleCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func strPtr(s string) *string { return &s }
