package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/sourav-maji/RosterPro/internal/model"
	"github.com/sourav-maji/RosterPro/internal/repository"
	pkgerrors "github.com/sourav-maji/RosterPro/pkg/errors"
	"github.com/sourav-maji/RosterPro/pkg/solver"
)

// 角色策略默认值（目录中的角色未覆盖时使用）
const (
	defaultMaxShiftsPerWeek = 5
	defaultMaxWeeklyHours   = 48
	defaultMinRestHours     = 12
	defaultShiftHours       = 8
)

// PayloadBuilder 组装发送给求解器的确定性请求
//
// 载荷只包含名称与编码；Mapping 与载荷一同返回，用于把求解结果回译为内部 ID。
// 相同的底层数据必然得到字节级相同的 JSON。
type PayloadBuilder interface {
	Build(ctx context.Context, tenantID, departmentID string, asOf time.Time) (*solver.Payload, *solver.Mapping, error)
}

type payloadBuilder struct {
	provider repository.Provider
	logger   *zap.Logger
}

// NewPayloadBuilder 创建 PayloadBuilder 实例
func NewPayloadBuilder(provider repository.Provider, logger *zap.Logger) PayloadBuilder {
	return &payloadBuilder{provider: provider, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Build：4 阶段组装
// ════════════════════════════════════════════════════════════

func (b *payloadBuilder) Build(ctx context.Context, tenantID, departmentID string, asOf time.Time) (*solver.Payload, *solver.Mapping, error) {
	asOf = model.TruncateDate(asOf)
	repo := b.provider.ForTenant(tenantID)

	if _, err := repo.Directory.GetDepartment(ctx, departmentID); err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%w: 部门 %s", pkgerrors.ErrOwnership, departmentID)
		}
		b.logger.Error("查询部门失败", zap.Error(err))
		return nil, nil, err
	}

	dir, err := b.loadDirectory(ctx, repo, departmentID, asOf)
	if err != nil {
		return nil, nil, err
	}

	payload := &solver.Payload{
		Shifts:            make(map[string]float64),
		Requirements:      make(map[string]map[string]int),
		Staff:             []solver.StaffEntry{},
		Unavailability:    make(map[string][]string),
		PreferredHolidays: make(map[string][]string),
		MaxShiftsPerWeek:  make(map[string]int),
		MaxWeeklyHours:    make(map[string]int),
		MinRestHours:      defaultMinRestHours,
	}
	mapping := &solver.Mapping{
		Shifts: make(map[string]string),
		Staff:  make(map[string]string),
		Days:   make(map[string]string),
	}

	// ── 阶段1: 日历 ──
	dates := model.WeekDates(asOf)
	labelByDate := make(map[string]string, len(dates))
	for _, d := range dates {
		label := dayLabel(d)
		payload.Days = append(payload.Days, label)
		mapping.Days[label] = model.FormatDate(d)
		labelByDate[model.FormatDate(d)] = label
	}

	// ── 阶段2: 班次 ──
	shifts := dir.shifts
	if len(shifts) == 0 {
		return nil, nil, fmt.Errorf("%w: 部门没有有效班次", pkgerrors.ErrEmptyInput)
	}
	shiftNames := make(map[string]string, len(shifts)) // shift id → 载荷中的名称
	for _, sh := range shifts {
		name := norm.NFC.String(sh.Name)
		if _, dup := mapping.Shifts[name]; dup {
			return nil, nil, fmt.Errorf("%w: 班次名称 %q 重复", pkgerrors.ErrValidation, name)
		}
		hours := sh.DurationHours
		if hours <= 0 {
			hours = defaultShiftHours
		}
		payload.Shifts[name] = hours
		mapping.Shifts[name] = sh.ShiftID
		shiftNames[sh.ShiftID] = name
	}

	// ── 阶段3: 人员 ──
	staff := dir.staff
	staffIDs := make([]string, 0, len(staff))
	usedRoles := make(map[string]bool)
	for _, st := range staff {
		role := norm.NFC.String(normalizeRoleCode(st.RoleCode))
		if role == "" {
			continue
		}
		payload.Staff = append(payload.Staff, solver.StaffEntry{ID: st.StaffID, Role: role})
		mapping.Staff[st.StaffID] = st.StaffID
		staffIDs = append(staffIDs, st.StaffID)
		usedRoles[role] = true
	}
	if len(payload.Staff) == 0 {
		return nil, nil, fmt.Errorf("%w: 部门没有带角色的在职员工", pkgerrors.ErrEmptyInput)
	}
	sort.Slice(payload.Staff, func(i, j int) bool { return payload.Staff[i].ID < payload.Staff[j].ID })

	// ── 阶段4: 需求与策略 ──
	for _, r := range dir.requirements {
		name, ok := shiftNames[r.ShiftID]
		if !ok {
			continue // 班次已停用
		}
		role := norm.NFC.String(r.RoleCode)
		if payload.Requirements[name] == nil {
			payload.Requirements[name] = make(map[string]int)
		}
		payload.Requirements[name][role] = r.RequiredCount
		usedRoles[role] = true
	}
	if len(payload.Requirements) == 0 {
		return nil, nil, fmt.Errorf("%w: %s 无生效的人员需求", pkgerrors.ErrEmptyInput, model.FormatDate(asOf))
	}

	applyRolePolicies(payload, dir.roles, usedRoles)

	// 已有且不会被重新求解覆盖的排班（手动记录或其他部门的记录）视为当日不可排
	existing, err := repo.Allocation.ListByStaffDates(ctx, staffIDs, dates)
	if err != nil {
		b.logger.Error("查询已有排班失败", zap.Error(err))
		return nil, nil, err
	}
	for _, a := range existing {
		if a.Source == model.SourceSolver && a.DepartmentID == departmentID {
			continue
		}
		label := labelByDate[model.FormatDate(a.Date)]
		payload.Unavailability[a.StaffID] = append(payload.Unavailability[a.StaffID], label)
	}
	for id, labels := range payload.Unavailability {
		sortLabels(labels, mapping)
		payload.Unavailability[id] = dedupe(labels)
	}

	b.logger.Debug("求解载荷已生成",
		zap.String("tenant_id", tenantID),
		zap.String("department_id", departmentID),
		zap.String("as_of", model.FormatDate(asOf)),
		zap.Int("shifts", len(payload.Shifts)),
		zap.Int("staff", len(payload.Staff)),
	)
	return payload, mapping, nil
}

// directorySnapshot 组装载荷所需的目录数据
type directorySnapshot struct {
	shifts       []model.Shift
	staff        []model.Staff
	requirements []model.RequirementVersion
	roles        []model.Role
}

// loadDirectory 并发读取班次、员工、生效需求与角色；任一失败即取消其余查询
func (b *payloadBuilder) loadDirectory(ctx context.Context, repo *repository.Repository, departmentID string, asOf time.Time) (*directorySnapshot, error) {
	var dir directorySnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		shifts, err := repo.Directory.ListShifts(gctx, departmentID, true)
		if err != nil {
			b.logger.Error("查询班次失败", zap.Error(err))
			return err
		}
		dir.shifts = shifts
		return nil
	})
	g.Go(func() error {
		staff, err := repo.Directory.ListStaff(gctx, departmentID, true)
		if err != nil {
			b.logger.Error("查询员工失败", zap.Error(err))
			return err
		}
		dir.staff = staff
		return nil
	})
	g.Go(func() error {
		reqs, err := repo.Requirement.List(gctx, repository.RequirementFilter{
			DepartmentID: departmentID,
			Date:         &asOf,
			ActiveOnly:   true,
		})
		if err != nil {
			b.logger.Error("查询需求版本失败", zap.Error(err))
			return err
		}
		dir.requirements = reqs
		return nil
	})
	g.Go(func() error {
		roles, err := repo.Directory.ListRoles(gctx)
		if err != nil {
			b.logger.Error("查询角色失败", zap.Error(err))
			return err
		}
		dir.roles = roles
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dir, nil
}

// applyRolePolicies 为全部可见角色（以及载荷中用到但目录未登记的角色）填充策略
func applyRolePolicies(payload *solver.Payload, roles []model.Role, usedRoles map[string]bool) {
	minRest := 0
	for _, role := range roles {
		code := norm.NFC.String(normalizeRoleCode(role.Code))
		if _, done := payload.MaxShiftsPerWeek[code]; done {
			continue // 租户角色优先于同编码的平台角色
		}
		payload.MaxShiftsPerWeek[code] = intOr(role.MaxShiftsPerWeek, defaultMaxShiftsPerWeek)
		payload.MaxWeeklyHours[code] = intOr(role.MaxWeeklyHours, defaultMaxWeeklyHours)
		if usedRoles[code] && role.MinRestHours != nil && *role.MinRestHours > minRest {
			minRest = *role.MinRestHours
		}
	}
	for code := range usedRoles {
		if _, ok := payload.MaxShiftsPerWeek[code]; !ok {
			payload.MaxShiftsPerWeek[code] = defaultMaxShiftsPerWeek
			payload.MaxWeeklyHours[code] = defaultMaxWeeklyHours
		}
	}
	if minRest > 0 {
		payload.MinRestHours = minRest
	}
}

// ── 辅助函数 ──

// dayLabel 星期缩写（Mon..Sun）；7 个连续日期的标签互不相同
func dayLabel(d time.Time) string {
	return d.Weekday().String()[:3]
}

func intOr(p *int, def int) int {
	if p == nil || *p <= 0 {
		return def
	}
	return *p
}

func sortLabels(labels []string, m *solver.Mapping) {
	sort.Slice(labels, func(i, j int) bool { return m.Days[labels[i]] < m.Days[labels[j]] })
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
